// Package archive keeps the durable relational record of posts and follows in
// Postgres and serves timelines from it by joining follows with posts on read.
package archive

import (
	"context"

	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Archive struct {
	db *gorm.DB
}

func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

// SavePost stores post. Saving the same post id again is a no-op.
func (a *Archive) SavePost(ctx context.Context, post *model.Post) error {
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(post).Error
	return store.Unavailable("save post", err)
}

// SaveFollow stores the edge and reports whether it is new.
func (a *Archive) SaveFollow(ctx context.Context, edge model.FollowEdge) (bool, error) {
	res := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if res.Error != nil {
		return false, store.Unavailable("save follow", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveFollows stores edges in one statement and returns how many were new.
func (a *Archive) SaveFollows(ctx context.Context, edges []model.FollowEdge) (int64, error) {
	if len(edges) == 0 {
		return 0, nil
	}
	res := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edges)
	if res.Error != nil {
		return 0, store.Unavailable("save follows", res.Error)
	}
	return res.RowsAffected, nil
}

// HomeTimeline returns the limit newest posts written by userId or anyone
// userId follows.
func (a *Archive) HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error) {
	db := a.db.WithContext(ctx)
	followees := db.Model(&model.FollowEdge{}).Select("followee_id").Where("follower_id = ?", userId)

	posts := []*model.Post{}
	err := db.Where("author_id = ? OR author_id IN (?)", userId, followees).
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, store.Unavailable("home timeline", err)
	}
	return posts, nil
}

func (a *Archive) IsFollowing(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follower_id = ? AND followee_id = ?", followerId, followeeId).
		Count(&n).Error
	if err != nil {
		return false, store.Unavailable("is following", err)
	}
	return n > 0, nil
}

// Following returns at most limit followees of userId, lowest id first.
func (a *Archive) Following(ctx context.Context, userId uint64, limit int) ([]uint64, error) {
	ids := []uint64{}
	err := a.db.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follower_id = ?", userId).
		Order("followee_id").
		Limit(limit).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, store.Unavailable("following", err)
	}
	return ids, nil
}

func (a *Archive) FollowerCount(ctx context.Context, userId uint64) (int64, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("followee_id = ?", userId).
		Count(&n).Error
	if err != nil {
		return 0, store.Unavailable("follower count", err)
	}
	return n, nil
}
