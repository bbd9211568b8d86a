package main

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Luismorlan/chirpmux/loader"
	"github.com/Luismorlan/chirpmux/model"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	Users   uint64
	Follows int
	Posts   int
	Reads   int
	Workers int
	Seed    int64
}

// Summary describes one benchmark phase.
type Summary struct {
	Phase      string
	Ops        int
	Elapsed    time.Duration
	Throughput float64
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	// Reads only, posts returned per timeline on average.
	MeanTimelineSize float64
}

func summarize(phase string, elapsed time.Duration, latencies []float64) Summary {
	s := Summary{Phase: phase, Ops: len(latencies), Elapsed: elapsed}
	if len(latencies) == 0 {
		return s
	}
	sort.Float64s(latencies)
	s.Throughput = float64(len(latencies)) / elapsed.Seconds()
	s.Mean = time.Duration(stat.Mean(latencies, nil))
	s.P50 = time.Duration(stat.Quantile(0.50, stat.Empirical, latencies, nil))
	s.P95 = time.Duration(stat.Quantile(0.95, stat.Empirical, latencies, nil))
	s.P99 = time.Duration(stat.Quantile(0.99, stat.Empirical, latencies, nil))
	return s
}

// RandomFollows draws n edges between distinct users in [1, users].
func RandomFollows(rng *rand.Rand, users uint64, n int) []model.FollowEdge {
	edges := make([]model.FollowEdge, 0, n)
	if users < 2 {
		return edges
	}
	for len(edges) < n {
		follower := uint64(rng.Int63n(int64(users))) + 1
		followee := uint64(rng.Int63n(int64(users))) + 1
		if follower == followee {
			continue
		}
		edges = append(edges, model.FollowEdge{FollowerId: follower, FolloweeId: followee})
	}
	return edges
}

// latencyLog collects per operation latencies in nanoseconds from many workers.
type latencyLog struct {
	mu      sync.Mutex
	samples []float64
	extra   []float64
}

func (l *latencyLog) add(d time.Duration, extra float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, float64(d))
	l.extra = append(l.extra, extra)
}

// runPhase calls op n times with at most workers calls in flight and stops at
// the first error.
func runPhase(ctx context.Context, phase string, n, workers int, op func(ctx context.Context, i int) (float64, error)) (Summary, error) {
	latencies := &latencyLog{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	start := time.Now()
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			opStart := time.Now()
			extra, err := op(ctx, i)
			if err != nil {
				return errors.Wrapf(err, "%s #%d", phase, i)
			}
			latencies.add(time.Since(opStart), extra)
			return nil
		})
	}
	err := g.Wait()
	s := summarize(phase, time.Since(start), latencies.samples)
	if len(latencies.extra) > 0 {
		s.MeanTimelineSize = stat.Mean(latencies.extra, nil)
	}
	return s, err
}

// Run loads a random follow graph, posts from random authors, then reads the
// home timelines of sampled followers.
func Run(ctx context.Context, api social.API, opts Options) ([]Summary, error) {
	if opts.Users < 1 {
		return nil, errors.New("at least one user is required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	summaries := []Summary{}

	if opts.Follows > 0 {
		edges := RandomFollows(rng, opts.Users, opts.Follows)
		start := time.Now()
		n, err := api.LoadFollows(ctx, loader.NewSliceEdgeSource(edges))
		if err != nil {
			return summaries, errors.Wrap(err, "fail to load follows")
		}
		elapsed := time.Since(start)
		summaries = append(summaries, Summary{
			Phase:      "load",
			Ops:        int(n),
			Elapsed:    elapsed,
			Throughput: float64(len(edges)) / elapsed.Seconds(),
		})
	}

	// Authors are drawn up front so workers never share the generator.
	authors := make([]uint64, opts.Posts)
	for i := range authors {
		authors[i] = uint64(rng.Int63n(int64(opts.Users))) + 1
	}
	s, err := runPhase(ctx, "post", opts.Posts, opts.Workers, func(ctx context.Context, i int) (float64, error) {
		_, err := api.PostTweet(ctx, authors[i], fmt.Sprintf("post %d from user %d", i, authors[i]))
		return 0, err
	})
	summaries = append(summaries, s)
	if err != nil {
		return summaries, err
	}

	s, err = runPhase(ctx, "read", opts.Reads, opts.Workers, func(ctx context.Context, i int) (float64, error) {
		user, ok, err := api.RandomFollower(ctx)
		if err != nil || !ok {
			return 0, err
		}
		posts, err := api.HomeTimeline(ctx, user, 0)
		return float64(len(posts)), err
	})
	summaries = append(summaries, s)
	return summaries, err
}
