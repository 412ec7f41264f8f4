package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Uploads stores generated images as flat files in a single directory.
// Nothing is ever removed; files accumulate until cleaned up externally.
type Uploads struct {
	dir string
}

// NewUploads returns an Uploads rooted at dir, creating the directory if it
// does not already exist.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Uploads{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (u *Uploads) Dir() string {
	return u.dir
}

// Filename derives the stored name for content generated at t. Two calls
// with the same content within the same second yield the same name.
func Filename(content string, t time.Time) string {
	return fmt.Sprintf("qr_%s_%d.png", t.Format("20060102150405"), xxhash.Sum64String(content)%10000)
}

// Write stores png under the name derived from content and at, overwriting
// any file of the same name, and returns that name.
func (u *Uploads) Write(content string, png []byte, at time.Time) (string, error) {
	name := Filename(content, at)
	if err := os.WriteFile(filepath.Join(u.dir, name), png, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}
