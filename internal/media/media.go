// Package media stores uploaded player portraits.
// Images are keyed by their (slugified) original filename, so uploading a second file with
// the same name replaces the first. The returned string is what gets saved as a player's
// imagedir: a path relative to the static root for local storage, or a public URL for S3.
package media

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// Store persists an uploaded image and returns the reference to save as imagedir.
type Store interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
}

// FileName derives the storage key for an upload: the slugified base name plus the
// lower-cased extension. "Zinédine Zidane.PNG" becomes "zinedine-zidane.png".
func FileName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "image"
	}
	return name + ext
}

// Local writes images into a directory on disk that the HTTP server also serves statically.
type Local struct {
	Dir       string // Filesystem directory, e.g. "static/images"
	URLPrefix string // Path the directory is served under, e.g. "images"

	create func(name string) (io.WriteCloser, error) // nil means os.Create
}

// NewLocal creates dir if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &Local{Dir: dir, URLPrefix: urlPrefix}, nil
}

// Save copies the upload to Dir, overwriting any file with the same name.
func (l *Local) Save(_ context.Context, fh *multipart.FileHeader) (string, error) {
	name := FileName(fh.Filename)

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	create := l.create
	if create == nil {
		create = func(name string) (io.WriteCloser, error) { return os.Create(name) }
	}
	dst, err := create(filepath.Join(l.Dir, name))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	// Close flushes; its error is the last chance to learn the write did not land.
	if err := dst.Close(); err != nil {
		return "", err
	}
	return path.Join(l.URLPrefix, name), nil
}
