package archive

import (
	"context"
	"time"

	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/social"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Saver persists posts and follow edges. *Archive is the production
// implementation. Both writes must be idempotent.
type Saver interface {
	SavePost(ctx context.Context, post *model.Post) error
	SaveFollows(ctx context.Context, edges []model.FollowEdge) (int64, error)
}

type ArchiverConfig struct {
	Name string
	// Give up on a single event after this long.
	MaxRetryElapsed time.Duration
}

// Archiver copies every post and follow created in the timeline store into
// the archive. It is an engine module listening to social.TopicPostCreated and
// social.TopicFollowsCreated.
type Archiver struct {
	Config ArchiverConfig

	saver      Saver
	subscriber message.Subscriber
	metrics    metrics.Reporter
}

func NewArchiver(config ArchiverConfig, saver Saver, subscriber message.Subscriber, r metrics.Reporter) *Archiver {
	if config.MaxRetryElapsed <= 0 {
		config.MaxRetryElapsed = time.Minute
	}
	if r == nil {
		r = metrics.Noop{}
	}
	return &Archiver{
		Config:     config,
		saver:      saver,
		subscriber: subscriber,
		metrics:    r,
	}
}

func (a *Archiver) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	posts, err := a.subscriber.Subscribe(ctx, social.TopicPostCreated)
	if err != nil {
		return err
	}
	follows, err := a.subscriber.Subscribe(ctx, social.TopicFollowsCreated)
	if err != nil {
		return err
	}

	// Runs until both subscriptions are closed.
	for posts != nil || follows != nil {
		select {
		case msg, ok := <-posts:
			if !ok {
				posts = nil
				continue
			}
			a.handlePost(ctx, msg)
		case msg, ok := <-follows:
			if !ok {
				follows = nil
				continue
			}
			a.handleFollows(ctx, msg)
		}
	}
	return nil
}

// Undecodable events are dropped.
func (a *Archiver) handlePost(ctx context.Context, msg *message.Message) {
	defer msg.Ack()
	event, err := social.ParsePostCreatedMessage(msg)
	if err != nil {
		Logger.Log.Errorln("drop post created event: ", err)
		a.metrics.Incr(metrics.ArchiveFailure)
		return
	}
	post := &event.Post
	err = a.retry(ctx, func() error {
		return a.saver.SavePost(ctx, post)
	})
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"post_id": post.Id}).Errorln("fail to archive post: ", err)
		a.metrics.Incr(metrics.ArchiveFailure)
		return
	}
	a.metrics.Incr(metrics.ArchivePost)
}

func (a *Archiver) handleFollows(ctx context.Context, msg *message.Message) {
	defer msg.Ack()
	event, err := social.ParseFollowsCreatedMessage(msg)
	if err != nil {
		Logger.Log.Errorln("drop follows created event: ", err)
		a.metrics.Incr(metrics.ArchiveFailure)
		return
	}
	err = a.retry(ctx, func() error {
		_, err := a.saver.SaveFollows(ctx, event.Edges)
		return err
	})
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"edges": len(event.Edges)}).Errorln("fail to archive follows: ", err)
		a.metrics.Incr(metrics.ArchiveFailure)
		return
	}
	a.metrics.Count(metrics.ArchiveFollows, int64(len(event.Edges)))
}

func (a *Archiver) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = a.Config.MaxRetryElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func (a *Archiver) Name() string {
	return a.Config.Name
}

func (a *Archiver) Shutdown() {
	Logger.Log.Infoln("Module ", a.Config.Name, " gracefully shutdown")
}
