package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)

	require.NoError(t, c.Set("ghi_auth_token", []byte("tok-1"), 0))

	got, ok := c.Get("ghi_auth_token")
	require.True(t, ok)
	require.Equal(t, "tok-1", string(got))

	info, err := os.Stat(filepath.Join(dir, "ghi_auth_token.cache"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second instance over the same dir sees the persisted entry
	reopened := NewDiskCache(dir, 0)
	got, ok = reopened.Get("ghi_auth_token")
	require.True(t, ok)
	require.Equal(t, "tok-1", string(got))

	require.NoError(t, c.Delete("ghi_auth_token"))
	_, ok = c.Get("ghi_auth_token")
	require.False(t, ok)
	require.NoError(t, c.Delete("ghi_auth_token"))
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)
	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestDiskCache_Clear(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)
	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Set("b", []byte("2"), 0))
	require.NoError(t, c.Clear())
	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", string(got))

	require.NoError(t, c.Set("short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("short")
	require.False(t, ok)

	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("http://localhost:8000/api/v1/signals/filters")
	b := CacheKey("http://localhost:8000/api/v1/signals/filters")
	require.Equal(t, a, b)
	require.NotEqual(t, a, CacheKey("http://other/api/v1/signals/filters"))
}
