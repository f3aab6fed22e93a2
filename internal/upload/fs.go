package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem stores uploads as flat files under a root directory.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem store rooted at dir, creating it if
// needed.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Filesystem{root: dir}, nil
}

// pathFor maps ref to a file under the root, refusing anything that could
// escape it.
func (s *Filesystem) pathFor(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" || strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return "", fmt.Errorf("%w: invalid reference %q", ErrNotFound, ref)
	}
	return filepath.Join(s.root, ref), nil
}

func (s *Filesystem) Save(ctx context.Context, r io.Reader, contentType string) (string, error) {
	ref := newRef(contentType)
	path, err := s.pathFor(ref)
	if err != nil {
		return "", err
	}

	// Write to a temp file and rename so readers never see a partial upload.
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("storing upload: %w", err)
	}
	return ref, nil
}

func (s *Filesystem) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	path, err := s.pathFor(ref)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, "", fmt.Errorf("opening upload: %w", err)
	}
	return f, contentTypeOf(ref), nil
}

func (s *Filesystem) Release(ctx context.Context, ref string) error {
	path, err := s.pathFor(ref)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}
