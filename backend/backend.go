// Package backend opens a social.API over one of the supported stores.
package backend

import (
	"context"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/archive"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/utils"
	"github.com/pkg/errors"
)

const (
	// Fan-out on write over Redis.
	Redis = "redis"
	// Fan-out on read over Postgres.
	SQL = "sql"
)

// Open connects to the store named by kind using connection settings from the
// environment.
func Open(ctx context.Context, kind string, config app_config.TimelineAppConfig, opts ...social.Option) (social.API, error) {
	switch kind {
	case Redis:
		s, err := utils.GetRedisStore(ctx)
		if err != nil {
			return nil, err
		}
		svc, err := social.NewService(s, utils.GetKeySchema(), config, opts...)
		if err != nil {
			s.Close()
			return nil, err
		}
		return svc, nil
	case SQL:
		db, err := utils.WaitForDBConnection(ctx)
		if err != nil {
			return nil, err
		}
		if err := utils.DatabaseSetupAndMigration(db); err != nil {
			return nil, errors.Wrap(err, "fail to migrate DB")
		}
		return archive.NewSQLTimelineService(db,
			archive.WithDefaultLimit(config.HOME_TIMELINE_LIMIT),
			archive.WithMaxLimit(config.HOME_TIMELINE_MAX_LIMIT),
			archive.WithLoadBatchSize(config.LOADER_CHUNK_SIZE),
		), nil
	default:
		return nil, errors.Errorf("unknown backend %q, want %q or %q", kind, Redis, SQL)
	}
}
