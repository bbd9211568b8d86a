// Package loader bulk loads follow edges into the follow graph in fixed size
// chunks, streaming the input so memory does not grow with its size.
package loader

import (
	"context"

	"github.com/Luismorlan/chirpmux/batch"
	"github.com/Luismorlan/chirpmux/graph"
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/store"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultChunkSize is the number of store operations sent per round-trip.
const DefaultChunkSize = 3000

type Loader struct {
	store     store.Store
	graph     *graph.FollowGraph
	metrics   metrics.Reporter
	chunkSize int
	inserted  func([]model.FollowEdge)
}

type Option func(*Loader)

func WithChunkSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

func WithMetrics(r metrics.Reporter) Option {
	return func(l *Loader) {
		l.metrics = r
	}
}

// WithInsertedEdges calls fn after every applied chunk with the edges of that
// chunk that did not exist before.
func WithInsertedEdges(fn func([]model.FollowEdge)) Option {
	return func(l *Loader) {
		l.inserted = fn
	}
}

func NewLoader(s store.Store, g *graph.FollowGraph, opts ...Option) *Loader {
	l := &Loader{
		store:     s,
		graph:     g,
		metrics:   metrics.Noop{},
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadEdges writes every edge of src and returns how many edges did not exist
// before. Duplicates are re-submitted safely and count 0. The load stops at
// the first source error; chunks sent before it stay applied and the count of
// edges inserted so far is returned with the error.
func (l *Loader) LoadEdges(ctx context.Context, src EdgeSource) (int64, error) {
	var (
		inserted     int64
		rows         int64
		pending      []*store.IntReply
		pendingEdges []model.FollowEdge
	)
	w := batch.NewWriter(l.store.Pipeline, l.chunkSize, batch.WithAfterFlush(func() {
		var fresh []model.FollowEdge
		for i, created := range pending {
			if created.Val() == 0 {
				continue
			}
			inserted += created.Val()
			if l.inserted != nil {
				fresh = append(fresh, pendingEdges[i])
			}
		}
		if len(fresh) > 0 {
			l.inserted(fresh)
		}
		pending = pending[:0]
		pendingEdges = pendingEdges[:0]
	}))

	for src.Next() {
		edge := src.Edge()
		err := w.Queue(ctx, func(p store.Pipeline) {
			pending = append(pending, l.graph.QueueFollow(p, edge.FollowerId, edge.FolloweeId))
			pendingEdges = append(pendingEdges, edge)
		})
		if err != nil {
			return inserted, errors.Wrap(err, "fail to load edges")
		}
		rows++
	}
	if err := src.Err(); err != nil {
		Logger.Log.WithFields(logrus.Fields{
			"rows":     rows,
			"inserted": inserted,
		}).Errorln("edge load aborted: ", err)
		return inserted, err
	}
	if err := w.Flush(ctx); err != nil {
		return inserted, errors.Wrap(err, "fail to load edges")
	}

	l.metrics.Count(metrics.LoaderEdges, rows)
	l.metrics.Count(metrics.LoaderInserted, inserted)
	Logger.Log.WithFields(logrus.Fields{
		"rows":     rows,
		"inserted": inserted,
		"chunks":   w.Flushes(),
	}).Info("edge load finished")
	return inserted, nil
}
