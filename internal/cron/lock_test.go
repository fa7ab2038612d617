package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
	delErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if f.delErr != nil {
		return false, f.delErr
	}
	if v, ok := f.values[key]; ok && v == expected {
		delete(f.values, key)
		return true, nil
	}
	return false, nil
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newFakeStore(), "", time.Minute)
	require.Error(t, err)

	store := newFakeStore()
	lock, err := NewRedisLock(store, "wh:lock:audit:dev", 0)
	require.NoError(t, err)
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["wh:lock:audit:dev"])
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	first, err := NewRedisLock(store, "wh:lock:audit:dev", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "wh:lock:audit:dev", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release must leave the holder's key alone
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "wh:lock:audit:dev")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "wh:lock:audit:dev")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	delete(store.values, "k")
	store.values["k"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["k"])
}

func TestRedisLockAcquireError(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("connection refused")
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	require.Error(t, err)
}

func TestRedisLockReleaseErrorClearsOwner(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store.delErr = errors.New("connection reset")
	require.Error(t, lock.Release(ctx))

	store.delErr = nil
	require.NoError(t, lock.Release(ctx), "second release is a no-op")
	assert.Contains(t, store.values, "k", "key is left to expire")
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	lock := &LocalLock{}

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
