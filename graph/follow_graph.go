// Package graph stores the directed follow graph: for every edge the follower
// is added to the followee's follower set, the followee to the follower's
// following set, and the follower to the global follower set used for sampling.
package graph

import (
	"context"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/pkg/errors"
)

// DefaultScanPageSize is the page size hint used when iterating follower sets.
const DefaultScanPageSize = 500

// Sampler draws a follower id from the whole graph. ok is false when the graph
// has no follower at all.
type Sampler interface {
	Sample(ctx context.Context) (id uint64, ok bool, err error)
}

type FollowGraph struct {
	store   store.Store
	keys    store.KeySchema
	sampler Sampler

	// Also maintain the ordered follower index, required by range probe
	// sampling.
	indexFollowers bool
	scanPageSize   int64
}

type Option func(*FollowGraph)

// WithOrderedFollowerIndex makes every edge insertion also record the follower
// in the score ordered follower index.
func WithOrderedFollowerIndex() Option {
	return func(g *FollowGraph) {
		g.indexFollowers = true
	}
}

func WithScanPageSize(n int64) Option {
	return func(g *FollowGraph) {
		if n > 0 {
			g.scanPageSize = n
		}
	}
}

func WithSampler(s Sampler) Option {
	return func(g *FollowGraph) {
		g.sampler = s
	}
}

func NewFollowGraph(s store.Store, keys store.KeySchema, opts ...Option) *FollowGraph {
	g := &FollowGraph{
		store:        s,
		keys:         keys,
		scanPageSize: DefaultScanPageSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// QueueFollow queues all writes of one edge into p. The returned reply is 1 once
// p is executed iff the edge did not exist before.
func (g *FollowGraph) QueueFollow(p store.Pipeline, followerId, followeeId uint64) *store.IntReply {
	follower := store.FormatId(followerId)
	created := p.SAdd(g.keys.Followers(followeeId), follower)
	p.SAdd(g.keys.Following(followerId), store.FormatId(followeeId))
	p.SAdd(g.keys.AllFollowers(), follower)
	if g.indexFollowers {
		p.ZAdd(g.keys.FollowerIndex(), follower, float64(followerId))
	}
	return created
}

// OpsPerEdge is the number of operations QueueFollow adds to a pipeline.
func (g *FollowGraph) OpsPerEdge() int {
	if g.indexFollowers {
		return 4
	}
	return 3
}

// AddFollow inserts the edge follower -> followee and returns whether it was
// newly created. Inserting an existing edge is not an error.
func (g *FollowGraph) AddFollow(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	p := g.store.Pipeline()
	created := g.QueueFollow(p, followerId, followeeId)
	if err := p.Exec(ctx); err != nil {
		return false, errors.Wrapf(err, "fail to add follow %d -> %d", followerId, followeeId)
	}
	return created.Val() == 1, nil
}

// IsFollowing reports whether the edge follower -> followee exists.
func (g *FollowGraph) IsFollowing(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	ok, err := g.store.SIsMember(ctx, g.keys.Followers(followeeId), store.FormatId(followerId))
	if err != nil {
		return false, errors.Wrap(err, "fail to check follow")
	}
	return ok, nil
}

func (g *FollowGraph) FollowerCount(ctx context.Context, followeeId uint64) (int64, error) {
	n, err := g.store.SCard(ctx, g.keys.Followers(followeeId))
	if err != nil {
		return 0, errors.Wrap(err, "fail to count followers")
	}
	return n, nil
}

// FollowersOf lazily iterates the followers of followeeId. The whole set is
// never loaded at once. Iteration cannot be resumed, call again to restart.
func (g *FollowGraph) FollowersOf(ctx context.Context, followeeId uint64) *UserIterator {
	return &UserIterator{inner: g.store.Scan(ctx, g.keys.Followers(followeeId), g.scanPageSize)}
}

// FollowingOf lazily iterates the users followerId follows.
func (g *FollowGraph) FollowingOf(ctx context.Context, followerId uint64) *UserIterator {
	return &UserIterator{inner: g.store.Scan(ctx, g.keys.Following(followerId), g.scanPageSize)}
}

// SampleFollower returns a follower id drawn from the whole graph, ok is false
// when nobody follows anybody.
func (g *FollowGraph) SampleFollower(ctx context.Context) (uint64, bool, error) {
	if g.sampler == nil {
		return 0, false, errors.New("follow graph has no sampler configured")
	}
	return g.sampler.Sample(ctx)
}

// UserIterator walks user ids of a set. Members that are not valid ids are
// skipped.
type UserIterator struct {
	inner store.Iterator
	val   uint64
}

func (it *UserIterator) Next(ctx context.Context) bool {
	for it.inner.Next(ctx) {
		id, err := store.ParseId(it.inner.Val())
		if err != nil {
			continue
		}
		it.val = id
		return true
	}
	return false
}

func (it *UserIterator) Val() uint64 {
	return it.val
}

func (it *UserIterator) Err() error {
	if err := it.inner.Err(); err != nil {
		return errors.Wrap(err, "fail to iterate users")
	}
	return nil
}
