package archive

import (
	"context"
	"math/rand"
	"time"

	"github.com/Luismorlan/chirpmux/idalloc"
	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/sampler"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/Luismorlan/chirpmux/timeline"
	"github.com/Luismorlan/chirpmux/utils"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultLoadBatchSize = 1000

// SQLTimelineService serves the same API as the Redis backed service, but
// computes home timelines on read. It is the baseline fan-out on write is
// measured against.
type SQLTimelineService struct {
	db           *gorm.DB
	archive      *Archive
	ids          idalloc.Allocator
	sampler      *sampler.RangeProbeSampler
	defaultLimit int
	maxLimit     int
	batchSize    int
	clock        func() time.Time
}

type Option func(*SQLTimelineService)

func WithDefaultLimit(n int) Option {
	return func(s *SQLTimelineService) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

func WithMaxLimit(n int) Option {
	return func(s *SQLTimelineService) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

func WithLoadBatchSize(n int) Option {
	return func(s *SQLTimelineService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(s *SQLTimelineService) {
		s.sampler = sampler.NewRangeProbeSampler(NewFollowerIndex(s.db), rng)
	}
}

func NewSQLTimelineService(db *gorm.DB, opts ...Option) *SQLTimelineService {
	s := &SQLTimelineService{
		db:           db,
		archive:      NewArchive(db),
		ids:          NewSequenceAllocator(db, utils.PostIdSequence),
		sampler:      sampler.NewRangeProbeSampler(NewFollowerIndex(db), nil),
		defaultLimit: timeline.DefaultHomeTimelineLimit,
		maxLimit:     timeline.MaxHomeTimelineLimit,
		batchSize:    DefaultLoadBatchSize,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLTimelineService) PostTweet(ctx context.Context, userId uint64, text string) (uint64, error) {
	id, err := s.ids.NextID(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fail to post")
	}
	post := &model.Post{
		Id:        id,
		AuthorId:  userId,
		CreatedAt: s.clock().UTC(),
		Text:      text,
	}
	if err := s.archive.SavePost(ctx, post); err != nil {
		return 0, errors.Wrapf(err, "fail to store post %d", id)
	}
	return id, nil
}

func (s *SQLTimelineService) HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error) {
	return s.archive.HomeTimeline(ctx, userId, timeline.ClampLimit(limit, s.defaultLimit, s.maxLimit))
}

func (s *SQLTimelineService) RandomFollower(ctx context.Context) (uint64, bool, error) {
	return s.sampler.Sample(ctx)
}

func (s *SQLTimelineService) Follow(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	return s.archive.SaveFollow(ctx, model.FollowEdge{FollowerId: followerId, FolloweeId: followeeId})
}

// LoadFollows inserts edges batchSize rows per statement. Like the Redis loader
// it stops at the first source error, keeping the batches already written.
func (s *SQLTimelineService) LoadFollows(ctx context.Context, src loader.EdgeSource) (int64, error) {
	var inserted int64
	batch := make([]model.FollowEdge, 0, s.batchSize)
	flush := func() error {
		n, err := s.archive.SaveFollows(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "fail to load edges")
		}
		inserted += n
		batch = batch[:0]
		return nil
	}

	for src.Next() {
		batch = append(batch, src.Edge())
		if len(batch) < s.batchSize {
			continue
		}
		if err := flush(); err != nil {
			return inserted, err
		}
	}
	if err := src.Err(); err != nil {
		Logger.Log.WithFields(logrus.Fields{"inserted": inserted}).Errorln("edge load aborted: ", err)
		return inserted, err
	}
	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func (s *SQLTimelineService) IsFollowing(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	return s.archive.IsFollowing(ctx, followerId, followeeId)
}

func (s *SQLTimelineService) Following(ctx context.Context, userId uint64, limit int) ([]uint64, error) {
	return s.archive.Following(ctx, userId, timeline.ClampLimit(limit, social.DefaultFollowingLimit, social.MaxFollowingLimit))
}

func (s *SQLTimelineService) FollowerCount(ctx context.Context, userId uint64) (int64, error) {
	return s.archive.FollowerCount(ctx, userId)
}

func (s *SQLTimelineService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
