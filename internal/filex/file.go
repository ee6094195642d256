// Package filex holds small filesystem helpers used by the CLI.
package filex

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file is too large")
)

// Image is a file read from disk for upload.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadImage reads at most limit bytes of the file at path and checks that
// its content sniffs as an image.
func ReadImage(path string, limit int64) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrTooLarge, limit)
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s: %w (%s)", path, ErrNotImage, ct)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "." + strings.TrimPrefix(ct, "image/")
	}
	return &Image{Data: data, Ext: ext, ContentType: ct}, nil
}
