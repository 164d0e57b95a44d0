package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

// ErrNotFound is returned by ReadDocument when no document exists for a key.
var ErrNotFound = errors.New("document not found")

// Store reads and writes named JSON documents.
type Store interface {
	ReadDocument(ctx context.Context, key string) ([]byte, error)
	WriteDocument(ctx context.Context, key string, data []byte) error
}

// DefaultDir returns the state directory used when no dir is configured.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, "snaptile")
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("document key is required")
	}
	if strings.Contains(key, string(os.PathSeparator)) || key != filepath.Base(key) {
		return fmt.Errorf("invalid document key %q", key)
	}
	if key == "." || key == ".." || strings.Contains(key, "..") {
		return fmt.Errorf("invalid document key %q", key)
	}
	return nil
}

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. An empty dir uses DefaultDir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileStore{dir: dir}
}

// Dir returns the directory documents are stored in.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileStore) ReadDocument(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document %q: %w", key, err)
	}
	return data, nil
}

// WriteDocument replaces the document atomically via a temp file rename.
func (s *FileStore) WriteDocument(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	return nil
}

// Delete removes the document for key. A missing document is ErrNotFound.
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete document %q: %w", key, err)
	}
	return nil
}

// List returns the stored keys in sorted order.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func (s *MemStore) ReadDocument(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemStore) WriteDocument(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

// FallbackStore prefers Primary and uses Secondary when Primary fails.
// Reads fall through on any Primary error other than ErrNotFound.
type FallbackStore struct {
	Primary   Store
	Secondary Store
	Logger    *slog.Logger
}

func (s *FallbackStore) ReadDocument(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Primary.ReadDocument(ctx, key)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, ErrNotFound) {
		// A previous write may have landed in the secondary.
		return s.Secondary.ReadDocument(ctx, key)
	}
	s.logger().Warn("primary store read failed, using fallback", "key", key, "error", err)
	return s.Secondary.ReadDocument(ctx, key)
}

func (s *FallbackStore) WriteDocument(ctx context.Context, key string, data []byte) error {
	err := s.Primary.WriteDocument(ctx, key, data)
	if err == nil {
		return nil
	}
	s.logger().Warn("primary store write failed, using fallback", "key", key, "error", err)
	return s.Secondary.WriteDocument(ctx, key, data)
}

func (s *FallbackStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
