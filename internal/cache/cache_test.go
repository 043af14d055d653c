package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data   map[string][]byte
	getErr error
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string, dest any) error {
	if m.getErr != nil {
		return m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *mapCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	calls := 0
	load := func() ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	got, hit, err := GetOrSet(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, hit, err = GetOrSet(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Delete(ctx, "k"))
	_, hit, _ = GetOrSet(ctx, c, "k", time.Minute, load)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestGetOrSet_NilCache(t *testing.T) {
	got, hit, err := GetOrSet(context.Background(), nil, "k", time.Minute, func() (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", got)
}

func TestGetOrSet_BrokenCacheFallsThrough(t *testing.T) {
	c := newMapCache()
	c.getErr = errors.New("connection refused")
	got, hit, err := GetOrSet(context.Background(), c, "k", time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, got)
}

func TestGetOrSet_LoaderErrorNotCached(t *testing.T) {
	c := newMapCache()
	_, _, err := GetOrSet(context.Background(), c, "k", time.Minute, func() (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	assert.Empty(t, c.data)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url")
	assert.Error(t, err)
}
