package archive

import (
	"context"
	"database/sql"

	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/store"
	"gorm.io/gorm"
)

// FollowerIndex exposes the follows table ordered by follower id, so that range
// probe sampling works on the archive. The primary key (follower_id,
// followee_id) serves both queries.
type FollowerIndex struct {
	db *gorm.DB
}

func NewFollowerIndex(db *gorm.DB) *FollowerIndex {
	return &FollowerIndex{db: db}
}

func (i *FollowerIndex) Bounds(ctx context.Context) (uint64, uint64, bool, error) {
	var bounds struct {
		Min sql.NullInt64
		Max sql.NullInt64
	}
	err := i.db.WithContext(ctx).Model(&model.FollowEdge{}).
		Select("MIN(follower_id) AS min, MAX(follower_id) AS max").
		Scan(&bounds).Error
	if err != nil {
		return 0, 0, false, store.Unavailable("follower bounds", err)
	}
	if !bounds.Min.Valid || !bounds.Max.Valid {
		return 0, 0, false, nil
	}
	return uint64(bounds.Min.Int64), uint64(bounds.Max.Int64), true, nil
}

func (i *FollowerIndex) Successor(ctx context.Context, from uint64) (uint64, bool, error) {
	var ids []uint64
	err := i.db.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follower_id >= ?", from).
		Order("follower_id").
		Limit(1).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return 0, false, store.Unavailable("follower successor", err)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}
