package utils

import (
	"testing"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// NewTestRedisStore starts an in-process Redis server for the duration of the
// test and returns a store connected to it. The server handle is returned so
// tests can inspect keys directly or simulate an outage with Close.
func NewTestRedisStore(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.NewRedisStore(redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		// Fail fast once the test server is closed.
		MaxRetries: -1,
	}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}
