// Package timeline materializes home timelines with fan-out on write: a post is
// appended to its author's timeline and to the timeline of every follower at
// write time, so that reading a timeline is a single range query.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Luismorlan/chirpmux/batch"
	"github.com/Luismorlan/chirpmux/graph"
	"github.com/Luismorlan/chirpmux/idalloc"
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/store"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultFanoutChunkSize is the number of queued operations sent to the
	// store per fan-out round-trip.
	DefaultFanoutChunkSize = 1000
)

// FanoutError is returned by Post when the post was stored and appended to the
// author's timeline but delivering it to followers failed part way. Chunks sent
// before the failure stay applied. Redeliver with PostId is safe to call.
type FanoutError struct {
	PostId    uint64
	Delivered int
	Err       error
}

func (e *FanoutError) Error() string {
	return fmt.Sprintf("fan-out of post %d stopped after %d followers: %v", e.PostId, e.Delivered, e.Err)
}

func (e *FanoutError) Unwrap() error {
	return e.Err
}

type Materializer struct {
	store   store.Store
	keys    store.KeySchema
	ids     idalloc.Allocator
	graph   *graph.FollowGraph
	metrics metrics.Reporter
	clock   func() time.Time

	// 0 means timelines are not capped.
	maxSize   int64
	chunkSize int
}

type Option func(*Materializer)

// WithMaxSize caps every timeline to its k most recent entries.
func WithMaxSize(k int64) Option {
	return func(m *Materializer) {
		if k > 0 {
			m.maxSize = k
		}
	}
}

func WithFanoutChunkSize(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.chunkSize = n
		}
	}
}

func WithMetrics(r metrics.Reporter) Option {
	return func(m *Materializer) {
		m.metrics = r
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Materializer) {
		m.clock = clock
	}
}

func NewMaterializer(s store.Store, keys store.KeySchema, ids idalloc.Allocator, g *graph.FollowGraph, opts ...Option) *Materializer {
	m := &Materializer{
		store:     s,
		keys:      keys,
		ids:       ids,
		graph:     g,
		metrics:   metrics.Noop{},
		clock:     time.Now,
		chunkSize: DefaultFanoutChunkSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Score orders timeline entries. Post ids are strictly increasing in creation
// order and unique, so ties never happen. Ids above 2^53 lose precision.
func Score(postId uint64) float64 {
	return float64(postId)
}

// Post creates a post and fans it out to the author's followers. The author's
// own timeline is updated before the fan-out starts. On a fan-out failure the
// returned post is still valid and the error is a *FanoutError.
func (m *Materializer) Post(ctx context.Context, authorId uint64, text string) (*model.Post, error) {
	id, err := m.ids.NextID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fail to post")
	}
	post := &model.Post{
		Id:        id,
		AuthorId:  authorId,
		CreatedAt: m.clock().UTC(),
		Text:      text,
	}

	// Record and author's timeline are applied together or not at all.
	own := m.store.TxPipeline()
	own.HSet(m.keys.Tweet(id), post.ToRecord())
	m.queueAppend(own, authorId, id)
	if err := own.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "fail to store post %d", id)
	}
	m.metrics.Incr(metrics.PostCount)

	if err := m.fanout(ctx, post); err != nil {
		return post, err
	}
	return post, nil
}

// Redeliver appends an existing post to its author's and followers' timelines
// again. Appending the same post twice is a no-op, so this is the retry path
// after a *FanoutError.
func (m *Materializer) Redeliver(ctx context.Context, postId uint64) error {
	fields, err := m.store.HGetAll(ctx, m.keys.Tweet(postId))
	if err != nil {
		return errors.Wrapf(err, "fail to load post %d", postId)
	}
	if len(fields) == 0 {
		return errors.Errorf("post %d does not exist", postId)
	}
	post, err := model.PostFromRecord(postId, fields)
	if err != nil {
		return err
	}

	own := m.store.TxPipeline()
	m.queueAppend(own, post.AuthorId, post.Id)
	if err := own.Exec(ctx); err != nil {
		return errors.Wrapf(err, "fail to redeliver post %d", postId)
	}
	return m.fanout(ctx, post)
}

// queueAppend adds the post to a timeline and trims it back to the cap. Trimming
// runs on every append so a timeline never exceeds the cap between operations.
func (m *Materializer) queueAppend(p store.Pipeline, userId, postId uint64) {
	key := m.keys.Timeline(userId)
	p.ZAdd(key, store.FormatId(postId), Score(postId))
	if m.maxSize > 0 {
		// Rank 0 is the oldest entry, keep the last maxSize ranks.
		p.ZRemRangeByRank(key, 0, -m.maxSize-1)
	}
}

func (m *Materializer) opsPerFollower() int {
	if m.maxSize > 0 {
		return 2
	}
	return 1
}

// fanout streams the follower set and sends timeline appends in fixed size
// chunks. Each chunk is applied atomically, an abandoned or failed fan-out
// leaves whole chunks behind only.
func (m *Materializer) fanout(ctx context.Context, post *model.Post) error {
	start := m.clock()
	w := batch.NewWriter(m.store.TxPipeline, m.chunkSize)

	fail := func(err error) error {
		m.metrics.Incr(metrics.FanoutFailure)
		delivered := w.Ops() / m.opsPerFollower()
		Logger.Log.WithFields(logrus.Fields{
			"post_id":   post.Id,
			"author_id": post.AuthorId,
			"delivered": delivered,
		}).Errorln("fan-out stopped: ", err)
		return &FanoutError{PostId: post.Id, Delivered: delivered, Err: err}
	}

	followers := 0
	it := m.graph.FollowersOf(ctx, post.AuthorId)
	for it.Next(ctx) {
		followerId := it.Val()
		err := w.Queue(ctx, func(p store.Pipeline) {
			m.queueAppend(p, followerId, post.Id)
		})
		if err != nil {
			return fail(err)
		}
		followers++
	}
	if err := it.Err(); err != nil {
		return fail(err)
	}
	if err := w.Flush(ctx); err != nil {
		return fail(err)
	}

	m.metrics.Count(metrics.FanoutFollowers, int64(followers))
	m.metrics.Count(metrics.FanoutChunks, int64(w.Flushes()))
	m.metrics.Timing(metrics.FanoutLatency, m.clock().Sub(start))
	return nil
}
