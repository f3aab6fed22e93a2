// Package upload stores item images behind an opaque reference.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open and Release for unknown references.
var ErrNotFound = errors.New("upload not found")

// Store keeps uploaded files. References returned by Save are stored on
// items verbatim.
type Store interface {
	Save(ctx context.Context, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, string, error)
	Release(ctx context.Context, ref string) error
}

// Driver names a Store backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	Dir    string
	S3     S3Config
}

// Open returns the Store selected by cfg. The filesystem backend is the
// default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}

// newRef builds a fresh reference, keeping an extension so backends without
// metadata can recover the content type.
func newRef(contentType string) string {
	ext := ""
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
		if contentType == "image/jpeg" {
			ext = ".jpg"
		}
	}
	return uuid.NewString() + ext
}

// contentTypeOf guesses a content type from ref's extension.
func contentTypeOf(ref string) string {
	i := strings.LastIndexByte(ref, '.')
	if i < 0 {
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(ref[i:]); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
