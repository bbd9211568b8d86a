package timeline

import (
	"context"

	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/store"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHomeTimelineLimit = 10
	MaxHomeTimelineLimit     = 800
)

// Reader resolves materialized timelines into posts. It never modifies a
// timeline.
type Reader struct {
	store        store.Store
	keys         store.KeySchema
	metrics      metrics.Reporter
	defaultLimit int
	maxLimit     int
}

type ReaderOption func(*Reader)

func WithReaderMetrics(r metrics.Reporter) ReaderOption {
	return func(rd *Reader) {
		rd.metrics = r
	}
}

// WithDefaultLimit sets the limit used when HomeTimeline is called with
// limit <= 0.
func WithDefaultLimit(n int) ReaderOption {
	return func(rd *Reader) {
		if n > 0 {
			rd.defaultLimit = n
		}
	}
}

// WithMaxLimit clamps larger requested limits to n.
func WithMaxLimit(n int) ReaderOption {
	return func(rd *Reader) {
		if n > 0 {
			rd.maxLimit = n
		}
	}
}

func NewReader(s store.Store, keys store.KeySchema, opts ...ReaderOption) *Reader {
	r := &Reader{
		store:        s,
		keys:         keys,
		metrics:      metrics.Noop{},
		defaultLimit: DefaultHomeTimelineLimit,
		maxLimit:     MaxHomeTimelineLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HomeTimeline returns at most limit posts of the user's timeline, most recent
// first. Limits above the reader's maximum are clamped. A missing or empty
// timeline yields an empty slice. Entries whose post record is gone are
// skipped.
func (r *Reader) HomeTimeline(ctx context.Context, userId uint64, limit int) ([]*model.Post, error) {
	limit = ClampLimit(limit, r.defaultLimit, r.maxLimit)
	r.metrics.Incr(metrics.TimelineRead)

	members, err := r.store.ZRevRange(ctx, r.keys.Timeline(userId), 0, int64(limit-1))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read timeline of user %d", userId)
	}
	posts := make([]*model.Post, 0, len(members))
	if len(members) == 0 {
		return posts, nil
	}

	ids := make([]uint64, 0, len(members))
	replies := make([]*store.MapReply, 0, len(members))
	p := r.store.Pipeline()
	for _, member := range members {
		id, err := store.ParseId(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		replies = append(replies, p.HGetAll(r.keys.Tweet(id)))
	}
	if err := p.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "fail to resolve timeline of user %d", userId)
	}

	for i, reply := range replies {
		fields := reply.Val()
		if len(fields) == 0 {
			r.metrics.Incr(metrics.TimelineMissing)
			continue
		}
		post, err := model.PostFromRecord(ids[i], fields)
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{
				"user_id": userId,
				"post_id": ids[i],
			}).Warnln("skip undecodable post record: ", err)
			continue
		}
		posts = append(posts, post)
	}
	r.metrics.Count(metrics.TimelineReadSize, int64(len(posts)))
	return posts, nil
}

// ClampLimit resolves a requested timeline size: limit <= 0 selects
// defaultLimit and anything above maxLimit is cut to maxLimit.
func ClampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
