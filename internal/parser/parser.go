// Package parser classifies media files by name and content.
package parser

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
)

// CaptureLayout is the time layout of capture display names (yyyyMMdd_HHmmss).
const CaptureLayout = "20060102_150405"

// SniffLen is how many leading bytes Parse needs to inspect content.
const SniffLen = 512

var (
	captureNameRe = regexp.MustCompile(`(\d{8}_\d{6})`)

	extToMIME = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".heic": "image/heic",
		".mp4":  "video/mp4",
		".m4v":  "video/mp4",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".3gp":  "video/3gpp",
		".mkv":  "video/x-matroska",
		".avi":  "video/avi",
	}
)

var mimeToExt = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/heic":       ".heic",
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/3gpp":       ".3gp",
	"video/x-matroska": ".mkv",
	"video/avi":        ".avi",
}

// Result holds what Parse learned about one media file.
type Result struct {
	Kind        models.Kind
	MimeType    string
	DisplayName string
	// CapturedAt is parsed from the display name; zero when the name carries
	// no capture timestamp.
	CapturedAt time.Time
}

// IsMedia reports whether path has a recognised image or video extension.
func IsMedia(path string) bool {
	_, ok := extToMIME[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MimeByExt returns the MIME type for a file extension (with the dot).
func MimeByExt(ext string) (string, bool) {
	m, ok := extToMIME[strings.ToLower(ext)]
	return m, ok
}

// ExtByMIME returns the canonical file extension (with the dot) for a MIME
// type handled by the library.
func ExtByMIME(mime string) (string, bool) {
	ext, ok := mimeToExt[strings.ToLower(mime)]
	return ext, ok
}

// Parse classifies the file at path. head may hold the first bytes of the
// content; when it is sniffable as an image or video that result wins over
// the extension.
func Parse(path string, head []byte) (*Result, error) {
	ext := filepath.Ext(path)
	mime, ok := MimeByExt(ext)
	if sniffed := sniff(head); sniffed != "" {
		mime, ok = sniffed, true
	}
	if !ok {
		return nil, fmt.Errorf("parser: %s: %w", path, apperr.ErrInvalidMedia)
	}
	kind, ok := models.KindFromMIME(mime)
	if !ok {
		return nil, fmt.Errorf("parser: %s: unsupported type %s: %w", path, mime, apperr.ErrInvalidMedia)
	}

	name := strings.TrimSuffix(filepath.Base(path), ext)
	return &Result{
		Kind:        kind,
		MimeType:    mime,
		DisplayName: name,
		CapturedAt:  captureTime(name),
	}, nil
}

// Validate checks that content sniffs as the wanted kind.
func Validate(kind models.Kind, head []byte) (string, error) {
	mime := sniff(head)
	if mime == "" {
		return "", fmt.Errorf("content is not a recognised %s: %w", kind, apperr.ErrInvalidMedia)
	}
	got, _ := models.KindFromMIME(mime)
	if got != kind {
		return "", fmt.Errorf("content is %s, want %s: %w", mime, kind, apperr.ErrInvalidMedia)
	}
	return mime, nil
}

// CaptureName formats t as a capture display name.
func CaptureName(t time.Time) string {
	return t.Format(CaptureLayout)
}

// sniff returns an image/* or video/* content type, or "".
func sniff(head []byte) string {
	if len(head) == 0 {
		return ""
	}
	detected := strings.Split(http.DetectContentType(head), ";")[0]
	if _, ok := models.KindFromMIME(detected); !ok {
		return ""
	}
	return detected
}

func captureTime(name string) time.Time {
	m := captureNameRe.FindString(name)
	if m == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(CaptureLayout, m, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
