// Package sampler draws a random follower id out of the whole follow graph
// without ever scanning the set of followers.
package sampler

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/pkg/errors"
)

const (
	Native     = "native"
	RangeProbe = "range_probe"
)

// Sampler returns (0, false, nil) when no follower is known.
type Sampler interface {
	Sample(ctx context.Context) (id uint64, ok bool, err error)
}

// NativeSetSampler delegates to the store's uniform set sampling.
type NativeSetSampler struct {
	store store.Store
	key   string
}

func NewNativeSetSampler(s store.Store, keys store.KeySchema) *NativeSetSampler {
	return &NativeSetSampler{store: s, key: keys.AllFollowers()}
}

func (n *NativeSetSampler) Sample(ctx context.Context) (uint64, bool, error) {
	member, ok, err := n.store.SRandMember(ctx, n.key)
	if err != nil {
		return 0, false, errors.Wrap(err, "fail to sample follower")
	}
	if !ok {
		return 0, false, nil
	}
	id, err := store.ParseId(member)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid follower id %q in %s", member, n.key)
	}
	return id, true, nil
}

// OrderedIndex is an index of known follower ids supporting min, max and
// successor queries.
type OrderedIndex interface {
	// Bounds returns the smallest and largest id, ok is false on empty index.
	Bounds(ctx context.Context) (min, max uint64, ok bool, err error)
	// Successor returns the smallest id >= from.
	Successor(ctx context.Context, from uint64) (id uint64, ok bool, err error)
}

// RangeProbeSampler picks a uniform point in [min, max] of the known follower
// ids and returns its successor. This is not uniform over followers: an id that
// follows a gap in the id space is picked with probability proportional to the
// gap.
type RangeProbeSampler struct {
	index OrderedIndex

	// guards rng only, never held across a store round-trip.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRangeProbeSampler uses a time seeded generator when rng is nil.
func NewRangeProbeSampler(index OrderedIndex, rng *rand.Rand) *RangeProbeSampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RangeProbeSampler{index: index, rng: rng}
}

func (r *RangeProbeSampler) Sample(ctx context.Context) (uint64, bool, error) {
	min, max, ok, err := r.index.Bounds(ctx)
	if err != nil {
		return 0, false, errors.Wrap(err, "fail to read follower id bounds")
	}
	if !ok {
		return 0, false, nil
	}

	probe := r.draw(min, max)
	id, ok, err := r.index.Successor(ctx, probe)
	if err != nil {
		return 0, false, errors.Wrap(err, "fail to find follower successor")
	}
	return id, ok, nil
}

// draw returns a uniform integer in [min, max].
func (r *RangeProbeSampler) draw(min, max uint64) uint64 {
	if max <= min {
		return min
	}
	span := max - min
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case span == math.MaxUint64:
		return r.rng.Uint64()
	case span >= math.MaxInt64:
		// Int63n cannot express the bound, the modulo bias is negligible here.
		return min + r.rng.Uint64()%(span+1)
	}
	return min + uint64(r.rng.Int63n(int64(span)+1))
}

// SortedSetIndex is an OrderedIndex over a score ordered collection whose
// scores are the follower ids themselves. Ids are read back from members since
// scores above 2^53 are rounded.
type SortedSetIndex struct {
	store store.Store
	key   string
}

func NewSortedSetIndex(s store.Store, keys store.KeySchema) *SortedSetIndex {
	return &SortedSetIndex{store: s, key: keys.FollowerIndex()}
}

func (i *SortedSetIndex) Bounds(ctx context.Context) (uint64, uint64, bool, error) {
	lo, ok, err := i.store.ZMin(ctx, i.key)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	hi, ok, err := i.store.ZMax(ctx, i.key)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	first, err := store.ParseId(lo.Member)
	if err != nil {
		return 0, 0, false, errors.Wrapf(err, "invalid follower id %q in %s", lo.Member, i.key)
	}
	last, err := store.ParseId(hi.Member)
	if err != nil {
		return 0, 0, false, errors.Wrapf(err, "invalid follower id %q in %s", hi.Member, i.key)
	}
	return first, last, true, nil
}

func (i *SortedSetIndex) Successor(ctx context.Context, from uint64) (uint64, bool, error) {
	e, ok, err := i.store.ZSuccessor(ctx, i.key, float64(from))
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := store.ParseId(e.Member)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid follower id %q in %s", e.Member, i.key)
	}
	return id, true, nil
}

// New builds the sampler named by kind over the given store.
func New(kind string, s store.Store, keys store.KeySchema) (Sampler, error) {
	switch kind {
	case Native, "":
		return NewNativeSetSampler(s, keys), nil
	case RangeProbe:
		return NewRangeProbeSampler(NewSortedSetIndex(s, keys), nil), nil
	default:
		return nil, errors.Errorf("unknown sampler %q", kind)
	}
}
