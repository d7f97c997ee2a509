// Package filestore keeps uploaded bill files. Uploads land in a working area
// keyed by bill id and are promoted to confirmed storage under their original
// name once the user saves the investment.
package filestore

import (
	"context"
	"errors"
	"mime"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrConflict is returned when the confirmed name is already taken.
	ErrConflict = errors.New("a confirmed bill with the same file name already exists")
	// ErrNotFound is returned when no working file matches the bill id.
	ErrNotFound = errors.New("no working file for bill")
	// ErrInvalidBillID is returned for a bill id that is not a single plain
	// path element.
	ErrInvalidBillID = errors.New("invalid bill id")
)

// Separator joins the bill id and the original file name in working storage.
const Separator = "__"

// Promoted describes a completed promotion so it can be undone.
type Promoted struct {
	BillID string
	From   string
	To     string
}

// Store persists working uploads and promotes them to confirmed storage.
type Store interface {
	// SaveWorking stores an upload and returns its location.
	SaveWorking(ctx context.Context, billID, filename, contentType string, data []byte) (string, error)
	// Promote moves the working file for billID to confirmed storage.
	// It never overwrites an existing confirmed file.
	Promote(ctx context.Context, billID string) (*Promoted, error)
	// Demote reverses a promotion.
	Demote(ctx context.Context, p *Promoted) error
}

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
}

// ValidBillID reports whether id can be used as a working-storage key: one
// path element with no separators, no traversal and no glob metacharacters.
func ValidBillID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if filepath.Base(id) != id || path.Base(id) != id {
		return false
	}
	return !strings.ContainsAny(id, "/\\*?[]") && !strings.Contains(id, Separator)
}

// WorkingName returns the working-storage name for an upload.
func WorkingName(billID, filename, contentType string) string {
	return billID + Separator + safeName(filename, contentType)
}

// OriginalName recovers the original file name from a working name.
func OriginalName(workingName string) string {
	_, name, found := strings.Cut(filepath.Base(workingName), Separator)
	if !found {
		return filepath.Base(workingName)
	}
	return name
}

func safeName(filename, contentType string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimLeft(name, ".")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' {
			return -1
		}
		return r
	}, name)
	if name != "" {
		return name
	}
	return "bill" + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}
