package storage

import (
	"fmt"
	"strings"
	"time"
)

// ObjectKey derives the storage key for the index-th file of a submission:
// "<unix millis>-<index>.<ext>". The extension is whatever follows the last dot
// of the original name; names without one fall back to the mime type.
func ObjectKey(submittedAt time.Time, index int, fileName, mimeType string) string {
	return fmt.Sprintf("%d-%d.%s", submittedAt.UnixMilli(), index, Extension(fileName, mimeType))
}

func Extension(fileName, mimeType string) string {
	if i := strings.LastIndex(fileName, "."); i >= 0 && i < len(fileName)-1 {
		return strings.ToLower(fileName[i+1:])
	}
	return mimeToExt(mimeType)
}

func mimeToExt(mime string) string {
	switch strings.TrimSpace(strings.Split(mime, ";")[0]) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	case "video/mp4":
		return "mp4"
	case "application/pdf":
		return "pdf"
	default:
		return "bin"
	}
}
