package storage

import (
	"testing"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *RistrettoStorage {
	t.Helper()
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	return NewRistrettoStorage(cache)
}

func TestRistrettoStorage(t *testing.T) {
	s := newTestStorage(t)
	defer s.Close()

	v, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set("k", []byte("1"), 0))
	v, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, s.Set("ttl", []byte("2"), time.Minute))
	v, _ = s.Get("ttl")
	assert.Equal(t, []byte("2"), v)

	require.NoError(t, s.Delete("k"))
	v, _ = s.Get("k")
	assert.Nil(t, v)

	require.NoError(t, s.Reset())
	v, _ = s.Get("ttl")
	assert.Nil(t, v)
}
