package listing

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"sync"
	"time"

	"gigmarket/internal/metrics"
	"gigmarket/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// File is an uploaded file held in memory.
type File struct {
	FieldName string
	Name      string
	Data      []byte
	MimeType  string
}

// FileRef identifies an uploaded file without its content.
type FileRef struct {
	FieldName string
	Name      string
}

// UploadResult is the outcome of storing one file of a submission batch.
type UploadResult struct {
	// Index is the position of the file in the submitted batch.
	Index     int
	FieldName string
	FileName  string
	Key       string
	URL       string
	Err       error
}

func (r UploadResult) OK() bool { return r.Err == nil }

// UploadBatch stores every file concurrently and waits for all of them to
// settle. Results are in completion order; a failed upload never stops the
// others.
func (s *Service) UploadBatch(ctx context.Context, files []File) []UploadResult {
	submittedAt := s.now()

	var (
		mu      sync.Mutex
		results = make([]UploadResult, 0, len(files))
		g       errgroup.Group
	)
	if s.opts.UploadConcurrency > 0 {
		g.SetLimit(s.opts.UploadConcurrency)
	}

	for i, f := range files {
		g.Go(func() error {
			res := s.uploadOne(ctx, submittedAt, i, f)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) uploadOne(ctx context.Context, submittedAt time.Time, index int, f File) UploadResult {
	key := storage.ObjectKey(submittedAt, index, f.Name, f.MimeType)
	res := UploadResult{Index: index, FieldName: f.FieldName, FileName: f.Name, Key: key}

	if s.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UploadTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.store.Upload(ctx, key, f.Data, f.MimeType)
	metrics.ImageUploadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ImageUploads.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Warn("image upload failed",
			zap.String("file", f.Name),
			zap.String("key", key),
			zap.Error(err))
		res.Err = fmt.Errorf("%w: %v", ErrStorage, err)
		return res
	}

	metrics.ImageUploads.WithLabelValues(metrics.OutcomeSuccess).Inc()
	res.URL = s.store.PublicURL(key)
	return res
}

// ReadFiles loads every file of a multipart form into memory, ordered by
// field name and then by position within the field.
func ReadFiles(form *multipart.Form) ([]File, error) {
	if form == nil {
		return nil, nil
	}

	var files []File
	for _, field := range sortedFields(form) {
		for _, fh := range form.File[field] {
			data, err := readHeader(fh)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
			}
			mimeType := fh.Header.Get("Content-Type")
			if mimeType == "" || mimeType == "application/octet-stream" {
				mimeType = http.DetectContentType(data)
			}
			files = append(files, File{
				FieldName: field,
				Name:      fh.Filename,
				Data:      data,
				MimeType:  mimeType,
			})
		}
	}
	return files, nil
}

// FileRefs lists the files of a multipart form without reading them.
func FileRefs(form *multipart.Form) []FileRef {
	if form == nil {
		return nil
	}
	var refs []FileRef
	for _, field := range sortedFields(form) {
		for _, fh := range form.File[field] {
			refs = append(refs, FileRef{FieldName: field, Name: fh.Filename})
		}
	}
	return refs
}

func sortedFields(form *multipart.Form) []string {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func readHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
