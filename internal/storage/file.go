package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const fileExt = ".save.gz"

// File stores each slot as a gzip-compressed file in a directory. Writes
// go to a temp file that is renamed into place.
type File struct {
	mu     sync.RWMutex
	dir    string
	logger *zap.Logger
}

// NewFile creates the directory if needed.
func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &File{dir: filepath.Clean(dir), logger: logger}, nil
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, slot+fileExt)
}

func (f *File) Save(ctx context.Context, slot string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("failed to compress save: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress save: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.atomicWrite(f.path(slot), buf.Bytes(), 0o644)
}

func (f *File) atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			f.logger.Warn("failed to remove temp file after rename failure",
				zap.String("path", tmp),
				zap.Error(removeErr),
			)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (f *File) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := os.Open(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open save: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read save: %w", err)
	}
	return data, nil
}

func (f *File) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (f *File) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	var slots []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(slots)
	return slots, nil
}

func (f *File) Close() error { return nil }
