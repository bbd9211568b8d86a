package social

import (
	"context"

	"github.com/Luismorlan/chirpmux/app_config"
	"github.com/Luismorlan/chirpmux/graph"
	"github.com/Luismorlan/chirpmux/idalloc"
	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/sampler"
	"github.com/Luismorlan/chirpmux/store"
	"github.com/Luismorlan/chirpmux/timeline"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Service serves API from a timeline store with fan-out on write.
type Service struct {
	store        store.Store
	graph        *graph.FollowGraph
	materializer *timeline.Materializer
	reader       *timeline.Reader
	loader       *loader.Loader

	publisher message.Publisher
}

type Option func(*serviceOptions)

type serviceOptions struct {
	publisher message.Publisher
	metrics   metrics.Reporter
	ids       idalloc.Allocator
	sampler   graph.Sampler
}

// WithEventPublisher publishes a PostCreatedEvent for every stored post and a
// FollowsCreatedEvent for new follow edges.
func WithEventPublisher(p message.Publisher) Option {
	return func(o *serviceOptions) {
		o.publisher = p
	}
}

func WithMetrics(r metrics.Reporter) Option {
	return func(o *serviceOptions) {
		o.metrics = r
	}
}

// WithAllocator replaces the store counter as the source of post ids.
func WithAllocator(a idalloc.Allocator) Option {
	return func(o *serviceOptions) {
		o.ids = a
	}
}

// WithSampler replaces the sampler selected by the config.
func WithSampler(s graph.Sampler) Option {
	return func(o *serviceOptions) {
		o.sampler = s
	}
}

func NewService(s store.Store, keys store.KeySchema, config app_config.TimelineAppConfig, opts ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid timeline config")
	}
	o := &serviceOptions{metrics: metrics.Noop{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.ids == nil {
		o.ids = idalloc.NewCounterAllocator(s, keys.TweetIdCounter())
	}
	if o.sampler == nil {
		smp, err := sampler.New(config.SAMPLER, s, keys)
		if err != nil {
			return nil, err
		}
		o.sampler = smp
	}

	graphOpts := []graph.Option{graph.WithSampler(o.sampler)}
	if config.SAMPLER == app_config.SamplerRangeProbe {
		graphOpts = append(graphOpts, graph.WithOrderedFollowerIndex())
	}
	g := graph.NewFollowGraph(s, keys, graphOpts...)

	svc := &Service{
		store: s,
		graph: g,
		materializer: timeline.NewMaterializer(s, keys, o.ids, g,
			timeline.WithMaxSize(config.TIMELINE_MAX_SIZE),
			timeline.WithFanoutChunkSize(config.FANOUT_CHUNK_SIZE),
			timeline.WithMetrics(o.metrics),
		),
		reader: timeline.NewReader(s, keys,
			timeline.WithDefaultLimit(config.HOME_TIMELINE_LIMIT),
			timeline.WithMaxLimit(config.HOME_TIMELINE_MAX_LIMIT),
			timeline.WithReaderMetrics(o.metrics),
		),
		publisher: o.publisher,
	}
	loaderOpts := []loader.Option{
		loader.WithChunkSize(config.LOADER_CHUNK_SIZE),
		loader.WithMetrics(o.metrics),
	}
	if o.publisher != nil {
		loaderOpts = append(loaderOpts, loader.WithInsertedEdges(svc.publishFollowsCreated))
	}
	svc.loader = loader.NewLoader(s, g, loaderOpts...)
	return svc, nil
}

// PostTweet stores the post and fans it out. When only the fan-out fails the
// id is returned along with a *timeline.FanoutError.
func (s *Service) PostTweet(ctx context.Context, userId uint64, text string) (uint64, error) {
	post, err := s.materializer.Post(ctx, userId, text)
	if post == nil {
		return 0, err
	}
	var fanoutErr *timeline.FanoutError
	s.publishPostCreated(post, !errors.As(err, &fanoutErr))
	return post.Id, err
}

// Redeliver retries the fan-out of an already stored post.
func (s *Service) Redeliver(ctx context.Context, postId uint64) error {
	return s.materializer.Redeliver(ctx, postId)
}

func (s *Service) HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error) {
	return s.reader.HomeTimeline(ctx, userId, limit)
}

func (s *Service) RandomFollower(ctx context.Context) (uint64, bool, error) {
	return s.graph.SampleFollower(ctx)
}

func (s *Service) Follow(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	created, err := s.graph.AddFollow(ctx, followerId, followeeId)
	if err == nil && created {
		s.publishFollowsCreated([]model.FollowEdge{{FollowerId: followerId, FolloweeId: followeeId}})
	}
	return created, err
}

// LoadFollows publishes the new edges of every applied chunk.
func (s *Service) LoadFollows(ctx context.Context, src loader.EdgeSource) (int64, error) {
	return s.loader.LoadEdges(ctx, src)
}

func (s *Service) IsFollowing(ctx context.Context, followerId, followeeId uint64) (bool, error) {
	return s.graph.IsFollowing(ctx, followerId, followeeId)
}

// Following walks the following set lazily and stops after limit users.
func (s *Service) Following(ctx context.Context, userId uint64, limit int) ([]uint64, error) {
	limit = timeline.ClampLimit(limit, DefaultFollowingLimit, MaxFollowingLimit)
	res := []uint64{}
	// A scan may return a member twice.
	seen := map[uint64]struct{}{}
	it := s.graph.FollowingOf(ctx, userId)
	for len(res) < limit && it.Next(ctx) {
		id := it.Val()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) FollowerCount(ctx context.Context, userId uint64) (int64, error) {
	return s.graph.FollowerCount(ctx, userId)
}

func (s *Service) Close() error {
	return s.store.Close()
}

// Publish failures are logged and never fail the post.
func (s *Service) publishPostCreated(post *model.Post, fanoutComplete bool) {
	if s.publisher == nil {
		return
	}
	msg, err := NewPostCreatedMessage(PostCreatedEvent{Post: *post, FanoutComplete: fanoutComplete})
	if err == nil {
		err = s.publisher.Publish(TopicPostCreated, msg)
	}
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"post_id": post.Id}).Warnln("fail to publish post created event: ", err)
	}
}

func (s *Service) publishFollowsCreated(edges []model.FollowEdge) {
	if s.publisher == nil {
		return
	}
	msg, err := NewFollowsCreatedMessage(FollowsCreatedEvent{Edges: edges})
	if err == nil {
		err = s.publisher.Publish(TopicFollowsCreated, msg)
	}
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"edges": len(edges)}).Warnln("fail to publish follows created event: ", err)
	}
}
