// Package social is the entry point applications use to post, follow and read
// home timelines, independent of how timelines are materialized.
package social

import (
	"context"

	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/model"
)

const (
	DefaultFollowingLimit = 100
	MaxFollowingLimit     = 1000
)

// API is implemented by the fan-out-on-write Service and by the relational
// archive, which computes timelines on read.
type API interface {
	// PostTweet stores a post and returns its id.
	PostTweet(ctx context.Context, userId uint64, text string) (uint64, error)
	// HomeTimeline returns at most limit posts, newest first. limit <= 0 uses
	// the default limit.
	HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error)
	// RandomFollower returns a user that follows someone, ok is false when
	// nobody follows anyone.
	RandomFollower(ctx context.Context) (id uint64, ok bool, err error)
	// Follow inserts an edge and reports whether it is new.
	Follow(ctx context.Context, followerId, followeeId uint64) (bool, error)
	// LoadFollows bulk inserts edges and returns how many were new.
	LoadFollows(ctx context.Context, src loader.EdgeSource) (int64, error)
	IsFollowing(ctx context.Context, followerId, followeeId uint64) (bool, error)
	// Following returns at most limit users userId follows, in no particular
	// order. limit <= 0 uses DefaultFollowingLimit.
	Following(ctx context.Context, userId uint64, limit int) ([]uint64, error)
	FollowerCount(ctx context.Context, userId uint64) (int64, error)
	Close() error
}
