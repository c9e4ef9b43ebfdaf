package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("priwatt_rate_limited", []byte("600"), 2*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("priwatt_rate_limited")
	assert.NoError(t, err)
	assert.Equal(t, "600", string(value))

	assert.NoError(t, mc.Delete("priwatt_rate_limited"))
	assert.NoError(t, mc.Delete("priwatt_rate_limited"))

	_, err = mc.Get("priwatt_rate_limited")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache()
	mc.now = func() time.Time { return now }

	_, err := mc.Get("idealo_rate_limited")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set("idealo_rate_limited", []byte("600"), 10*time.Minute))
	value, err := mc.Get("idealo_rate_limited")
	require.NoError(t, err)
	assert.Equal(t, "600", string(value))

	now = now.Add(10 * time.Minute)
	_, err = mc.Get("idealo_rate_limited")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set("forever", []byte("x"), 0))
	now = now.Add(24 * time.Hour)
	_, err = mc.Get("forever")
	assert.NoError(t, err)

	require.NoError(t, mc.Delete("forever"))
	_, err = mc.Get("forever")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewSelectsBackend(t *testing.T) {
	assert.IsType(t, &MemoryCache{}, New(""))
	assert.IsType(t, &MemcacheService{}, New("localhost:11211"))
}
