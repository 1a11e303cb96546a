package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "schemes", []byte(`[{"name":"a"}]`)))
	v, err := s.Get(ctx, "schemes")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"a"}]`, string(v))

	require.NoError(t, s.Put(ctx, "schemes", []byte(`[]`)))
	v, err = s.Get(ctx, "schemes")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v))

	require.NoError(t, s.Delete(ctx, "schemes"))
	_, err = s.Get(ctx, "schemes")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(ctx, "schemes"), "deleting a missing key is not an error")

	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	exerciseStore(t, NewFileStore(path))
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	require.NoError(t, NewFileStore(path).Put(ctx, "k", []byte(`{"x":1}`)))
	v, err := NewFileStore(path).Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(v))

	assert.Error(t, NewFileStore(path).Put(ctx, "bad", []byte("{not json")))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := NewFileStore(path).Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "storage.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	exerciseStore(t, s)

	_, err = NewSQLiteStore("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(BackendFile, filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("SQLite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("etcd", "")
	assert.Error(t, err)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("disk on fire")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenStore) Put(context.Context, string, []byte) error    { return errBroken }
func (brokenStore) Delete(context.Context, string) error         { return errBroken }
func (brokenStore) Close() error                                 { return nil }

func TestFallbackUsesSecondaryWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	secondary := NewMemoryStore()
	f := NewFallback(brokenStore{}, secondary, zaptest.NewLogger(t))

	require.NoError(t, f.Put(ctx, "k", []byte(`1`)))
	v, err := secondary.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `1`, string(v))

	v, err = f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `1`, string(v))
}

func TestFallbackPrefersPrimary(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewMemoryStore(), NewMemoryStore()
	require.NoError(t, secondary.Put(ctx, "k", []byte(`"stale"`)))

	f := NewFallback(primary, secondary, nil)
	require.NoError(t, f.Put(ctx, "k", []byte(`"fresh"`)))

	_, err := secondary.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound, "successful primary write clears the secondary copy")

	v, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"fresh"`, string(v))

	_, err = f.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackBothFail(t *testing.T) {
	f := NewFallback(brokenStore{}, brokenStore{}, nil)
	err := f.Put(context.Background(), "k", []byte(`1`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
}

// stuckStore keeps values but cannot delete them.
type stuckStore struct{ *MemoryStore }

func (stuckStore) Delete(context.Context, string) error { return errBroken }

// frozenStore serves reads but rejects every write.
type frozenStore struct{ *MemoryStore }

func (frozenStore) Put(context.Context, string, []byte) error { return errBroken }
func (frozenStore) Delete(context.Context, string) error      { return errBroken }

func TestFallbackOverwritesUndeletableSecondary(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewMemoryStore(), stuckStore{NewMemoryStore()}
	require.NoError(t, secondary.Put(ctx, "k", []byte(`"stale"`)))

	f := NewFallback(primary, secondary, zaptest.NewLogger(t))
	require.NoError(t, f.Put(ctx, "k", []byte(`"fresh"`)))

	v, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"fresh"`, string(v))
}

func TestFallbackReportsStaleSecondary(t *testing.T) {
	ctx := context.Background()
	secondary := frozenStore{NewMemoryStore()}
	require.NoError(t, secondary.MemoryStore.Put(ctx, "k", []byte(`"stale"`)))

	f := NewFallback(NewMemoryStore(), secondary, zaptest.NewLogger(t))
	err := f.Put(ctx, "k", []byte(`"fresh"`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
}

func TestFallbackPathPerPrimary(t *testing.T) {
	dir := t.TempDir()
	a := FallbackPath(filepath.Join(dir, "a", "storage.json"))
	b := FallbackPath(filepath.Join(dir, "b", "storage.json"))

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, FallbackPath(filepath.Join(dir, "a", "..", "a", "storage.json")))
	assert.Equal(t, filepath.Join(os.TempDir(), "keycap-preview"), filepath.Dir(a))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "x.db", ResolvePath(BackendSQLite, "x.db"))
	assert.Equal(t, filepath.Join(DefaultDir(), "storage.json"), ResolvePath(BackendFile, ""))
	assert.Equal(t, filepath.Join(DefaultDir(), "storage.db"), ResolvePath("SQLite", ""))
	assert.Empty(t, ResolvePath(BackendMemory, ""))
}
