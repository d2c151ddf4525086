package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/noteflow/internal/config"
)

func newTestBlobStore(t *testing.T) (*BlobStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	cfg := config.RedisConfig{
		URL:      "redis://" + s.Addr(),
		PoolSize: 10,
		BlobTTL:  time.Hour,
	}
	store, err := NewBlobStore(cfg, "noteflow:checkpoint:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestBlobStore_SaveThenLoad_RoundTrips(t *testing.T) {
	store, _ := newTestBlobStore(t)
	ctx := context.Background()

	blob := []byte(`{"observation":{},"state":{}}`)
	require.NoError(t, store.Save(ctx, "run-1", blob))

	got, ok, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blob, got)
}

func TestBlobStore_Load_MissingRun_NotFoundNotError(t *testing.T) {
	store, _ := newTestBlobStore(t)

	got, ok, err := store.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestBlobStore_Delete_RemovesBlob(t *testing.T) {
	store, _ := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "run-2", []byte("x")))
	require.NoError(t, store.Delete(ctx, "run-2"))

	_, ok, err := store.Load(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobStore_InvalidURL_Errors(t *testing.T) {
	cfg := config.RedisConfig{URL: "not-a-valid-redis-url"}
	store, err := NewBlobStore(cfg, "p:")
	assert.Error(t, err)
	assert.Nil(t, store)
}
