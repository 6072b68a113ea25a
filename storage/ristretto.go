package storage

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoStorage implements fiber.Storage on top of a ristretto cache. It
// backs the rate limiter so counters live in the same bounded memory as the
// signal cache.
type RistrettoStorage struct {
	cache *ristretto.Cache[string, []byte]
}

// NewRistrettoStorage creates a new RistrettoStorage
func NewRistrettoStorage(cache *ristretto.Cache[string, []byte]) *RistrettoStorage {
	return &RistrettoStorage{cache: cache}
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (r *RistrettoStorage) Get(key string) ([]byte, error) {
	if value, found := r.cache.Get(key); found {
		return value, nil
	}
	return nil, nil
}

// Set stores val, without expiry when exp is zero. Writes are flushed before
// returning so an immediate Get observes them.
func (r *RistrettoStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	cost := int64(len(val))
	if exp > 0 {
		r.cache.SetWithTTL(key, val, cost, exp)
	} else {
		r.cache.Set(key, val, cost)
	}
	r.cache.Wait()
	return nil
}

func (r *RistrettoStorage) Delete(key string) error {
	r.cache.Del(key)
	return nil
}

func (r *RistrettoStorage) Reset() error {
	r.cache.Clear()
	return nil
}

func (r *RistrettoStorage) Close() error {
	r.cache.Close()
	return nil
}
