package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "volume", []byte("42")))
	v, ok, err := s.Get(ctx, "volume")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("42"), v)

	require.NoError(t, s.Set(ctx, "volume", []byte("7")))
	v, _, err = s.Get(ctx, "volume")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), v)

	require.NoError(t, s.Delete(ctx, "volume"))
	_, ok, err = s.Get(ctx, "volume")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(context.Background(), "k", buf))
	buf[0] = 'z'

	v, _, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "player.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "player.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "liked_songs", []byte(`[{"id":"1"}]`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "liked_songs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(v))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), mr.Addr(), "", 0, "playdeck-test:")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	assert.False(t, mr.Exists("playdeck-test:volume"))

	require.NoError(t, s.Set(context.Background(), "volume", []byte("40")))
	got, err := mr.Get("playdeck-test:volume")
	require.NoError(t, err)
	assert.Equal(t, "40", got, "keys carry the prefix")
}

func TestRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenRedis(context.Background(), addr, "", 0, "playdeck-test:")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}
