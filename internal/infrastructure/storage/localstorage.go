// Package storage keeps uploaded attachments on local disk and hands out
// the public URL each file is served from.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// StoredFile is the public reference to a saved attachment.
type StoredFile struct {
	Name string // original file name
	URL  string
}

// LocalStorage writes files below a directory served under BaseURL.
type LocalStorage struct {
	dir     string
	baseURL string
	now     func() time.Time
	seq     atomic.Uint64
}

// NewLocalStorage creates dir if needed.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes content under a unique name derived from the upload time and
// the original name.
func (s *LocalStorage) Save(ctx context.Context, name string, content []byte) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	stored := s.storedName(name)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create attachment file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write attachment file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to close attachment file: %w", err)
	}

	return StoredFile{Name: name, URL: s.baseURL + "/" + stored}, nil
}

func (s *LocalStorage) storedName(name string) string {
	ts := s.now().UnixMilli()
	n := s.seq.Add(1)
	return fmt.Sprintf("%d_%d_%s", ts, n, sanitizeName(name))
}

// sanitizeName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
