package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

const defaultContentType = "image/jpeg"

var contentTypesByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// ResolveFileName picks the stored file name for an import: the caller-provided
// name when present, otherwise the last path segment of the source URL,
// otherwise a timestamp-based name with the default image extension.
func ResolveFileName(imageName, sourceURL string, now func() time.Time) string {
	if trimmed := strings.TrimSpace(imageName); trimmed != "" {
		return trimmed
	}
	if segment := lastPathSegment(sourceURL); segment != "" {
		return segment
	}
	if now == nil {
		now = time.Now
	}
	return fmt.Sprintf("import-%d.jpg", now().UTC().UnixNano())
}

func lastPathSegment(sourceURL string) string {
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return ""
	}
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		trimmed = parsed.Path
	}
	segment := path.Base(strings.TrimSuffix(trimmed, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	return segment
}

// ContentTypeFor maps a file name's extension to its MIME type. Unknown and
// missing extensions fall back to image/jpeg.
func ContentTypeFor(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if contentType, ok := contentTypesByExtension[ext]; ok {
		return contentType
	}
	return defaultContentType
}
