package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Luismorlan/chirpmux/store"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// Give up connecting to a store after this long on startup.
	StoreConnectTimeout = 30 * time.Second
)

// Pinger is anything that can tell whether its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisOptionsFromEnv builds client options from REDIS_HOST, REDIS_PORT,
// REDIS_PASSWD and REDIS_DB.
func RedisOptionsFromEnv() (*redis.Options, error) {
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		var err error
		if db, err = strconv.Atoi(v); err != nil {
			return nil, errors.Wrapf(err, "invalid REDIS_DB %q", v)
		}
	}
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       db,
	}, nil
}

// GetKeySchema returns the key schema for REDIS_KEY_NAMESPACE.
func GetKeySchema() store.KeySchema {
	return store.NewKeySchema(os.Getenv("REDIS_KEY_NAMESPACE"))
}

// GetRedisStore connects to the Redis specified by env and waits until it
// answers.
func GetRedisStore(ctx context.Context) (*store.RedisStore, error) {
	opts, err := RedisOptionsFromEnv()
	if err != nil {
		return nil, err
	}
	s := store.NewRedisStore(redis.NewClient(opts))

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = StoreConnectTimeout
	if err := WaitForStore(ctx, s, b); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "fail to connect to redis at %s", opts.Addr)
	}
	return s, nil
}

// WaitForStore pings p until it succeeds, b gives up or ctx is done.
func WaitForStore(ctx context.Context, p Pinger, b backoff.BackOff) error {
	return backoff.RetryNotify(
		func() error { return p.Ping(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			Logger.Log.WithFields(logrus.Fields{"retry_in": next}).Warnln("store not ready: ", err)
		},
	)
}
