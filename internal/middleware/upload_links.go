package middleware

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"gigmarket/internal/domain/listing"
	"gigmarket/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BatchUploader interface {
	UploadBatch(ctx context.Context, files []listing.File) []listing.UploadResult
	CacheDir() string
	CachedCopyPath(image string) string
}

// UploadLinks uploads every multipart file of the request to object storage,
// keeps a local copy in the upload cache and stores map[fieldName][]publicURL
// under listing.UploadLinksKey. URLs of one field keep the order of the files
// within that field. Requests without files pass through untouched so the
// handler can reject them.
func UploadLinks(uploader BatchUploader, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.Next()
			return
		}

		files, err := listing.ReadFiles(form)
		if err != nil {
			c.Abort()
			response.InternalError(c, err)
			return
		}
		if len(files) == 0 {
			c.Next()
			return
		}

		results := uploader.UploadBatch(c.Request.Context(), files)
		sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

		links := make(map[string][]string, len(files))
		for _, res := range results {
			if !res.OK() {
				c.Abort()
				response.InternalError(c, res.Err)
				return
			}
			links[res.FieldName] = append(links[res.FieldName], res.URL)
			writeCachedCopy(uploader, res.Key, files[res.Index].Data, log)
		}

		c.Set(listing.UploadLinksKey, links)
		c.Next()
	}
}

func writeCachedCopy(uploader BatchUploader, key string, data []byte, log *zap.Logger) {
	if uploader.CacheDir() == "" {
		return
	}
	p := uploader.CachedCopyPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		log.Warn("failed to create upload cache dir", zap.String("path", p), zap.Error(err))
		return
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		log.Warn("failed to write cached upload", zap.String("path", p), zap.Error(err))
	}
}
