package sampler

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/Luismorlan/chirpmux/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceIndex is an in-memory OrderedIndex over a sorted slice of ids.
type sliceIndex struct {
	ids []uint64
}

func (s *sliceIndex) Bounds(ctx context.Context) (uint64, uint64, bool, error) {
	if len(s.ids) == 0 {
		return 0, 0, false, nil
	}
	return s.ids[0], s.ids[len(s.ids)-1], true, nil
}

func (s *sliceIndex) Successor(ctx context.Context, from uint64) (uint64, bool, error) {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= from })
	if i == len(s.ids) {
		return 0, false, nil
	}
	return s.ids[i], true, nil
}

func addFollowers(t *testing.T, s store.Store, keys store.KeySchema, ids ...uint64) {
	t.Helper()
	p := s.Pipeline()
	for _, id := range ids {
		p.SAdd(keys.AllFollowers(), store.FormatId(id))
		p.ZAdd(keys.FollowerIndex(), store.FormatId(id), float64(id))
	}
	require.NoError(t, p.Exec(context.Background()))
}

func TestSamplersOnEmptyGraph(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	ctx := context.Background()

	for _, kind := range []string{Native, RangeProbe} {
		smp, err := New(kind, s, keys)
		require.NoError(t, err)
		id, ok, err := smp.Sample(ctx)
		assert.NoError(t, err, kind)
		assert.False(t, ok, kind)
		assert.Zero(t, id, kind)
	}
}

func TestSamplersReturnKnownFollowers(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	ctx := context.Background()
	addFollowers(t, s, keys, 3, 17, 250)

	for _, kind := range []string{Native, RangeProbe} {
		smp, err := New(kind, s, keys)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			id, ok, err := smp.Sample(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Contains(t, []uint64{3, 17, 250}, id)
		}
	}
}

func TestUnknownSampler(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	_, err := New("reservoir", s, store.NewKeySchema(""))
	assert.Error(t, err)
}

func TestRangeProbeFavorsIdsAfterGaps(t *testing.T) {
	idx := &sliceIndex{ids: []uint64{1, 2, 100}}
	smp := NewRangeProbeSampler(idx, rand.New(rand.NewSource(42)))
	ctx := context.Background()

	counts := map[uint64]int{}
	const draws = 5000
	for i := 0; i < draws; i++ {
		id, ok, err := smp.Sample(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		counts[id]++
	}

	// 100 owns the probes 3..100, i.e. 98 of the 100 points in the range.
	assert.Greater(t, counts[100], draws*9/10)
	assert.Less(t, counts[1], draws/10)
	assert.Equal(t, draws, counts[1]+counts[2]+counts[100])
}

func TestRangeProbeSingleFollower(t *testing.T) {
	smp := NewRangeProbeSampler(&sliceIndex{ids: []uint64{7}}, nil)
	id, ok, err := smp.Sample(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), id)
}

func TestRangeProbeDrawStaysInRange(t *testing.T) {
	smp := NewRangeProbeSampler(&sliceIndex{}, rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		v := smp.draw(10, 12)
		assert.GreaterOrEqual(t, v, uint64(10))
		assert.LessOrEqual(t, v, uint64(12))
	}
	v := smp.draw(0, ^uint64(0))
	assert.GreaterOrEqual(t, v, uint64(0))
}

func TestSortedSetIndex(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	ctx := context.Background()
	idx := NewSortedSetIndex(s, keys)

	_, _, ok, err := idx.Bounds(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	addFollowers(t, s, keys, 40, 8, 15)
	min, max, ok, err := idx.Bounds(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(8), min)
	assert.Equal(t, uint64(40), max)

	succ, ok, err := idx.Successor(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(15), succ)

	_, ok, err = idx.Successor(ctx, 41)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortedSetIndexBoundsKeepLargeIds(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	idx := NewSortedSetIndex(s, keys)

	// Both ids round to the same float64 score.
	lo, hi := uint64(1)<<60+1, uint64(1)<<60+3
	addFollowers(t, s, keys, hi, lo)
	first, last, ok, err := idx.Bounds(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, lo, first)
	assert.Equal(t, hi, last)
}

func TestSamplerStoreUnavailable(t *testing.T) {
	s, mr := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	mr.Close()

	for _, kind := range []string{Native, RangeProbe} {
		smp, err := New(kind, s, keys)
		require.NoError(t, err)
		_, _, err = smp.Sample(context.Background())
		assert.ErrorIs(t, err, store.ErrStoreUnavailable, kind)
	}
}
