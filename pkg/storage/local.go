package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/config"
)

// FileStore accepts a binary payload and returns a publicly servable URL.
// Remove takes that URL back when the surrounding operation fails after the
// payload was already written.
type FileStore interface {
	Save(ctx context.Context, prefix string, content []byte, ext string) (string, error)
	Remove(ctx context.Context, url string) error
}

// LocalStore writes uploads to a directory on disk. URLs are composed from
// the configured public base path, matching how the static file server
// exposes the directory.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewLocalStore prepares the uploads directory and returns a disk-backed store.
func NewLocalStore(cfg config.UploadsConfig) (*LocalStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &LocalStore{
		dir:      cfg.Dir,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes: cfg.MaxBytes,
	}, nil
}

// Save persists the payload under a random name and returns its URL.
func (s *LocalStore) Save(ctx context.Context, prefix string, content []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", fmt.Errorf("empty payload")
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", fmt.Errorf("payload exceeds %d bytes", s.maxBytes)
	}

	name := uuid.NewString() + ext
	if prefix != "" {
		name = prefix + "_" + name
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Remove deletes a previously saved upload identified by its public URL.
// A URL that no longer resolves to a file is not an error.
func (s *LocalStore) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := strings.TrimPrefix(url, s.baseURL+"/")
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("url %q is not a managed upload", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}
