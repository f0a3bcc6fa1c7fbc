package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) fullPath(path string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(path))
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	// write then rename so a reader never sees a partial file
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fullPath)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

// List returns slash-separated paths relative to the base, sorted.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	searchPath := l.fullPath(prefix)

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) != ".tmp" {
			relPath, _ := filepath.Rel(l.basePath, path)
			paths = append(paths, filepath.ToSlash(relPath))
		}
		return nil
	})

	if os.IsNotExist(err) {
		return []string{}, nil
	}
	sort.Strings(paths)
	return paths, err
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	err := os.Remove(l.fullPath(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
