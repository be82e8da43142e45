package blob

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/google/uuid"
)

var imageExt = map[string]string{
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

// Upload is a file submitted alongside a vault request.
type Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// CheckImage verifies that u is an image by both its declared MIME type and
// its sniffed content, and returns the sniffed type with a file extension.
func CheckImage(u *Upload, maxBytes int64) (contentType, ext string, err error) {
	if len(u.Data) == 0 {
		return "", "", common.Validation("icon is empty")
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		return "", "", common.Validation(fmt.Sprintf("icon exceeds %d bytes", maxBytes))
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return "", "", common.Validation("icon must be an image")
	}

	sniffed := http.DetectContentType(u.Data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if !strings.HasPrefix(sniffed, "image/") {
		return "", "", common.Validation("icon must be an image")
	}

	ext = imageExt[sniffed]
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(u.Filename))
	}
	return sniffed, ext, nil
}

// IconKey returns the object key for a new icon of owner:
// icons/<owner>/<yyyy>/<mm>/<uuid><ext>.
func IconKey(owner, ext string, now time.Time) string {
	return path.Join("icons", owner, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}
