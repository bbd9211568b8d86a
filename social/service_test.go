package social

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/store"
	"github.com/Luismorlan/chirpmux/timeline"
	"github.com/Luismorlan/chirpmux/utils"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ API = (*Service)(nil)

type capturingPublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = map[string][]*message.Message{}
	}
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *capturingPublisher) on(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[topic]
}

func (p *capturingPublisher) Close() error { return nil }

// failingTxStore fails every atomic batch after the first failAfter ones.
type failingTxStore struct {
	store.Store
	failAfter int
	execs     int
}

func (s *failingTxStore) TxPipeline() store.Pipeline {
	return &failingPipeline{Pipeline: s.Store.TxPipeline(), parent: s}
}

type failingPipeline struct {
	store.Pipeline
	parent *failingTxStore
}

func (p *failingPipeline) Exec(ctx context.Context) error {
	p.parent.execs++
	if p.parent.execs > p.parent.failAfter {
		return store.Unavailable("exec", assert.AnError)
	}
	return p.Pipeline.Exec(ctx)
}

func newTestService(t *testing.T, config app_config.TimelineAppConfig, opts ...Option) (*Service, *miniredis.Miniredis, store.KeySchema) {
	t.Helper()
	s, mr := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	svc, err := NewService(s, keys, config, opts...)
	require.NoError(t, err)
	return svc, mr, keys
}

func TestServiceEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, app_config.DefaultTimelineAppConfig())

	_, ok, err := svc.RandomFollower(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := svc.LoadFollows(ctx, loader.NewCSVEdgeSource(strings.NewReader("1,2\n1,2\n3,2\n"), false))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	created, err := svc.Follow(ctx, 4, 2)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Follow(ctx, 4, 2)
	require.NoError(t, err)
	assert.False(t, created)

	id, err := svc.PostTweet(ctx, 2, "hello")
	require.NoError(t, err)
	assert.NotZero(t, id)

	for _, user := range []uint64{1, 2, 3, 4} {
		posts, err := svc.HomeTimeline(ctx, user, 0)
		require.NoError(t, err)
		require.Len(t, posts, 1, "user %d", user)
		assert.Equal(t, id, posts[0].Id)
		assert.Equal(t, "hello", posts[0].Text)
		assert.Equal(t, uint64(2), posts[0].AuthorId)
	}

	posts, err := svc.HomeTimeline(ctx, 99, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	follower, ok, err := svc.RandomFollower(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, []uint64{1, 3, 4}, follower)
}

func TestServiceUsesConfig(t *testing.T) {
	ctx := context.Background()
	config := app_config.DefaultTimelineAppConfig()
	config.TIMELINE_MAX_SIZE = 2
	config.HOME_TIMELINE_LIMIT = 5
	config.SAMPLER = app_config.SamplerRangeProbe
	svc, mr, keys := newTestService(t, config)

	_, err := svc.Follow(ctx, 7, 1)
	require.NoError(t, err)
	idx, err := mr.ZMembers(keys.FollowerIndex())
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, idx)

	var ids []uint64
	for i := 0; i < 4; i++ {
		id, err := svc.PostTweet(ctx, 1, "p")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	posts, err := svc.HomeTimeline(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, ids[3], posts[0].Id)
	assert.Equal(t, ids[2], posts[1].Id)

	follower, ok, err := svc.RandomFollower(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), follower)
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	s, _ := utils.NewTestRedisStore(t)
	config := app_config.DefaultTimelineAppConfig()
	config.SAMPLER = "reservoir"
	_, err := NewService(s, store.NewKeySchema(""), config)
	assert.Error(t, err)
}

func TestServicePublishesPostCreated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()
	messages, err := bus.Subscribe(ctx, TopicPostCreated)
	require.NoError(t, err)

	svc, _, _ := newTestService(t, app_config.DefaultTimelineAppConfig(), WithEventPublisher(bus))
	id, err := svc.PostTweet(ctx, 5, "archived")
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()
		event, err := ParsePostCreatedMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, id, event.Post.Id)
		assert.Equal(t, uint64(5), event.Post.AuthorId)
		assert.Equal(t, "archived", event.Post.Text)
		assert.True(t, event.FanoutComplete)
	case <-time.After(5 * time.Second):
		t.Fatal("no post created event")
	}
}

func TestServicePostTweetFanoutFailure(t *testing.T) {
	ctx := context.Background()
	s, _ := utils.NewTestRedisStore(t)
	keys := store.NewKeySchema("")
	fs := &failingTxStore{Store: s, failAfter: 1}
	pub := &capturingPublisher{}
	svc, err := NewService(fs, keys, app_config.DefaultTimelineAppConfig(), WithEventPublisher(pub))
	require.NoError(t, err)

	_, err = svc.Follow(ctx, 8, 1)
	require.NoError(t, err)

	id, err := svc.PostTweet(ctx, 1, "partial")
	require.Error(t, err)
	var fanoutErr *timeline.FanoutError
	require.ErrorAs(t, err, &fanoutErr)
	assert.Equal(t, id, fanoutErr.PostId)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	require.Len(t, pub.on(TopicPostCreated), 1)
	event, err := ParsePostCreatedMessage(pub.on(TopicPostCreated)[0])
	require.NoError(t, err)
	assert.False(t, event.FanoutComplete)

	posts, err := svc.HomeTimeline(ctx, 8, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	fs.failAfter = 100
	require.NoError(t, svc.Redeliver(ctx, id))
	posts, err = svc.HomeTimeline(ctx, 8, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, id, posts[0].Id)
}

func TestServicePostTweetUnavailable(t *testing.T) {
	pub := &capturingPublisher{}
	svc, mr, _ := newTestService(t, app_config.DefaultTimelineAppConfig(), WithEventPublisher(pub))
	mr.Close()

	id, err := svc.PostTweet(context.Background(), 1, "lost")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.Zero(t, id)
	assert.Empty(t, pub.on(TopicPostCreated))
}

func TestServicePublishesNewFollows(t *testing.T) {
	ctx := context.Background()
	config := app_config.DefaultTimelineAppConfig()
	config.LOADER_CHUNK_SIZE = 6
	pub := &capturingPublisher{}
	svc, _, _ := newTestService(t, config, WithEventPublisher(pub))

	_, err := svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	// Already present, nothing to publish.
	_, err = svc.Follow(ctx, 1, 2)
	require.NoError(t, err)

	n, err := svc.LoadFollows(ctx, loader.NewCSVEdgeSource(strings.NewReader("1,2\n3,2\n4,2\n"), false))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got [][2]uint64
	for _, msg := range pub.on(TopicFollowsCreated) {
		event, err := ParseFollowsCreatedMessage(msg)
		require.NoError(t, err)
		for _, e := range event.Edges {
			got = append(got, [2]uint64{e.FollowerId, e.FolloweeId})
		}
	}
	assert.Equal(t, [][2]uint64{{1, 2}, {3, 2}, {4, 2}}, got)
}

func TestServiceFollowQueries(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, app_config.DefaultTimelineAppConfig())

	for followee := uint64(10); followee < 15; followee++ {
		_, err := svc.Follow(ctx, 1, followee)
		require.NoError(t, err)
	}
	_, err := svc.Follow(ctx, 2, 10)
	require.NoError(t, err)

	ok, err := svc.IsFollowing(ctx, 1, 12)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsFollowing(ctx, 12, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	following, err := svc.Following(ctx, 1, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{10, 11, 12, 13, 14}, following)

	following, err = svc.Following(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, following, 3)
	assert.Subset(t, []uint64{10, 11, 12, 13, 14}, following)

	following, err = svc.Following(ctx, 99, 0)
	require.NoError(t, err)
	assert.Empty(t, following)
	assert.NotNil(t, following)

	count, err := svc.FollowerCount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	count, err = svc.FollowerCount(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceClampsTimelineLimit(t *testing.T) {
	ctx := context.Background()
	config := app_config.DefaultTimelineAppConfig()
	config.TIMELINE_MAX_SIZE = 0
	config.HOME_TIMELINE_LIMIT = 2
	config.HOME_TIMELINE_MAX_LIMIT = 3
	svc, _, _ := newTestService(t, config)

	for i := 0; i < 5; i++ {
		_, err := svc.PostTweet(ctx, 1, "p")
		require.NoError(t, err)
	}
	posts, err := svc.HomeTimeline(ctx, 1, 100000000)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}
