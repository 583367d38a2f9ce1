package listing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gigmarket/internal/events"
	"gigmarket/internal/metrics"

	"go.uber.org/zap"
)

// Partial-failure policies for a submission batch.
const (
	PolicyDrop   = "drop"
	PolicyReject = "reject"
)

// Storage is the object store listing images are uploaded to.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Cache holds listings (owner included) by id. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, id int64) (*Listing, error)
	Set(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id int64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, event events.ListingEvent) error
}

type Options struct {
	// FailurePolicy is PolicyDrop (default) or PolicyReject.
	FailurePolicy     string
	UploadConcurrency int
	UploadTimeout     time.Duration
	// CacheDir holds local copies of uploaded images, named by object key.
	CacheDir string

	Cache  Cache
	Events EventPublisher
	Now    func() time.Time
}

type Service struct {
	repo   Repository
	store  Storage
	logger *zap.Logger
	opts   Options
}

func NewService(repo Repository, store Storage, log *zap.Logger, opts Options) *Service {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicyDrop
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{repo: repo, store: store, logger: log, opts: opts}
}

func (s *Service) now() time.Time { return s.opts.Now() }

// CacheDir is where local copies of uploaded images live.
func (s *Service) CacheDir() string { return s.opts.CacheDir }

// Submit uploads files and creates a listing owned by ownerID that references
// the uploaded images.
func (s *Service) Submit(ctx context.Context, files []File, in *ListingInput, ownerID int64) (*Listing, error) {
	if len(files) == 0 || in == nil {
		return nil, fmt.Errorf("%w: files and listing properties are required", ErrValidation)
	}

	results := s.UploadBatch(ctx, files)

	images := make([]string, 0, len(results))
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			continue
		}
		images = append(images, r.URL)
	}
	if failed > 0 {
		s.logger.Warn("submission has failed uploads",
			zap.Int64("owner_id", ownerID),
			zap.Int("failed", failed),
			zap.Int("total", len(files)),
			zap.String("policy", s.opts.FailurePolicy))
		if s.opts.FailurePolicy == PolicyReject {
			metrics.Submissions.WithLabelValues("create", metrics.OutcomeFailure).Inc()
			return nil, fmt.Errorf("%w: %d of %d uploads failed", ErrStorage, failed, len(files))
		}
	}

	l := &Listing{CreatedByID: ownerID, Images: images}
	l.apply(in)
	if err := s.repo.Create(ctx, l); err != nil {
		metrics.Submissions.WithLabelValues("create", metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.Submissions.WithLabelValues("create", metrics.OutcomeSuccess).Inc()

	s.logger.Info("listing created",
		zap.Int64("listing_id", l.ID),
		zap.Int64("owner_id", ownerID),
		zap.Int("images", len(images)))
	s.publish(ctx, events.SubjectListingCreated, l)

	return l, nil
}

// Edit replaces every field of listing id. Files must already be uploaded:
// links maps each multipart field name to the public URLs of its files, in the
// order the files appear within that field.
func (s *Service) Edit(ctx context.Context, id int64, files []FileRef, links map[string][]string, in *ListingInput, ownerID int64) (*Listing, error) {
	if id <= 0 || len(files) == 0 || in == nil {
		return nil, fmt.Errorf("%w: files and listing properties are required", ErrValidation)
	}
	if links == nil {
		return nil, ErrUploadLinksMissing
	}

	images := make([]string, 0, len(files))
	next := make(map[string]int, len(links))
	for _, f := range files {
		urls := links[f.FieldName]
		i := next[f.FieldName]
		next[f.FieldName] = i + 1
		if i >= len(urls) || urls[i] == "" {
			s.logger.Warn("no upload link for file", zap.String("field", f.FieldName), zap.String("file", f.Name))
			continue
		}
		images = append(images, urls[i])
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		metrics.Submissions.WithLabelValues("edit", metrics.OutcomeFailure).Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	oldImages := existing.Images

	existing.apply(in)
	existing.Images = images
	existing.CreatedByID = ownerID
	existing.CreatedBy = nil

	if err := s.repo.Update(ctx, existing); err != nil {
		metrics.Submissions.WithLabelValues("edit", metrics.OutcomeFailure).Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.Submissions.WithLabelValues("edit", metrics.OutcomeSuccess).Inc()

	s.removeCachedCopies(oldImages)
	s.invalidate(ctx, id)

	s.logger.Info("listing edited",
		zap.Int64("listing_id", id),
		zap.Int64("owner_id", ownerID),
		zap.Int("images", len(images)))
	s.publish(ctx, events.SubjectListingUpdated, existing)

	// A GetByID that read the old row before Update may have cached it after
	// the first delete. The remaining window is bounded by the cache TTL.
	s.invalidate(ctx, id)

	return existing, nil
}

// GetByID returns the listing with its owner, or nil when it does not exist.
func (s *Service) GetByID(ctx context.Context, id int64) (*Listing, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: service id is required", ErrValidation)
	}

	if s.opts.Cache != nil {
		cached, err := s.opts.Cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("listing cache read failed", zap.Int64("listing_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	l, err := s.repo.GetByIDWithOwner(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Set(ctx, l); err != nil {
			s.logger.Warn("listing cache write failed", zap.Int64("listing_id", id), zap.Error(err))
		}
	}
	return l, nil
}

// GetByOwner returns every listing of ownerID; an unknown owner has none.
func (s *Service) GetByOwner(ctx context.Context, ownerID int64) ([]Listing, error) {
	listings, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}

// Search matches listings whose title contains term OR whose category
// contains category, ignoring case.
func (s *Service) Search(ctx context.Context, term, category string) ([]Listing, error) {
	term = strings.TrimSpace(term)
	category = strings.TrimSpace(category)
	if term == "" && category == "" {
		return nil, fmt.Errorf("%w: search term or category is required", ErrValidation)
	}
	listings, err := s.repo.Search(ctx, term, category)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Delete(ctx, id); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Int64("listing_id", id), zap.Error(err))
	}
}

// CachedCopyPath maps an image URL (or bare key) to its local copy.
func (s *Service) CachedCopyPath(image string) string {
	return filepath.Join(s.opts.CacheDir, path.Base(image))
}

func (s *Service) removeCachedCopies(images []string) {
	if s.opts.CacheDir == "" {
		return
	}
	for _, image := range images {
		if base := path.Base(image); base == "." || base == "/" {
			continue
		}
		p := s.CachedCopyPath(image)
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove cached image", zap.String("path", p), zap.Error(err))
		}
	}
}

func (s *Service) publish(ctx context.Context, subject string, l *Listing) {
	event := events.ListingEvent{
		ListingID:  l.ID,
		OwnerID:    l.CreatedByID,
		Title:      l.Title,
		Category:   l.Category,
		ImageCount: len(l.Images),
		OccurredAt: s.now().UTC(),
	}
	if err := s.opts.Events.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("listing event publish failed",
			zap.String("subject", subject),
			zap.Int64("listing_id", l.ID),
			zap.Error(err))
	}
}
