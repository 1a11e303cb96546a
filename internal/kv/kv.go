// Package kv provides the durable key-value stores that hold saved schemes.
package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a durable key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

const appDir = "keycap-preview"

// DefaultDir returns ~/.config/keycap-preview (or the platform equivalent).
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir)
}

// Open creates the store for backend. An empty path selects the default
// location for file and sqlite backends.
func Open(backend Backend, path string) (Store, error) {
	backend = Backend(strings.ToLower(string(backend)))
	path = ResolvePath(backend, path)
	switch backend {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// ResolvePath returns the file backend stores into, applying the default
// location when path is empty. Memory stores have no path.
func ResolvePath(backend Backend, path string) string {
	if path != "" {
		return path
	}
	switch Backend(strings.ToLower(string(backend))) {
	case BackendFile, "":
		return filepath.Join(DefaultDir(), "storage.json")
	case BackendSQLite:
		return filepath.Join(DefaultDir(), "storage.db")
	}
	return ""
}

// FallbackPath returns the secondary file for a primary store at path. It
// lives under the temp directory and is named after the primary's absolute
// path, so stores of different configurations never share it.
func FallbackPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path)))
	return filepath.Join(os.TempDir(), appDir, "fallback-"+id.String()+".json")
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Fallback writes to Primary and falls back to Secondary when the primary
// write fails. A value held by Secondary is newer than the primary copy, so
// reads check it first.
type Fallback struct {
	Primary   Store
	Secondary Store
	logger    *zap.Logger
}

// NewFallback pairs two stores. A nil logger discards output.
func NewFallback(primary, secondary Store, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{Primary: primary, Secondary: secondary, logger: logger}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := f.Secondary.Get(ctx, key); err == nil {
		return v, nil
	}
	return f.Primary.Get(ctx, key)
}

func (f *Fallback) Put(ctx context.Context, key string, value []byte) error {
	err := f.Primary.Put(ctx, key, value)
	if err == nil {
		// Drop any copy written while the primary was failing.
		if derr := f.Secondary.Delete(ctx, key); derr != nil {
			f.logger.Warn("failed to clear secondary copy, overwriting it",
				zap.String("key", key), zap.Error(derr))
			if perr := f.Secondary.Put(ctx, key, value); perr != nil {
				return fmt.Errorf("stale secondary copy of %q: %w", key, errors.Join(derr, perr))
			}
		}
		return nil
	}
	f.logger.Warn("primary store write failed, using secondary",
		zap.String("key", key), zap.Error(err))
	if err2 := f.Secondary.Put(ctx, key, value); err2 != nil {
		return fmt.Errorf("failed to store %q: %w", key, errors.Join(err, err2))
	}
	return nil
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	err := f.Primary.Delete(ctx, key)
	err2 := f.Secondary.Delete(ctx, key)
	if err != nil && err2 != nil {
		return errors.Join(err, err2)
	}
	return nil
}

func (f *Fallback) Close() error {
	return errors.Join(f.Primary.Close(), f.Secondary.Close())
}
