package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/statsd"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
)

const (
	namespace = "chirpmux."

	PostCount        = "post.count"
	FanoutFollowers  = "fanout.followers"
	FanoutChunks     = "fanout.chunks"
	FanoutFailure    = "fanout.failure"
	FanoutLatency    = "fanout.latency"
	LoaderEdges      = "loader.edges"
	LoaderInserted   = "loader.inserted"
	TimelineRead     = "timeline.read"
	TimelineReadSize = "timeline.read_size"
	TimelineMissing  = "timeline.missing_post"
	ArchivePost      = "archive.post"
	ArchiveFailure   = "archive.failure"
	ArchiveFollows   = "archive.follows"
	HTTPRequest      = "http.request"
)

// Reporter is the narrow set of metric calls the engine makes. Reporting is
// best effort, failures are logged and never surfaced to callers.
type Reporter interface {
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Timing(name string, d time.Duration, tags ...string)
}

// StatsdReporter sends metrics to a DogStatsD agent.
type StatsdReporter struct {
	client statsd.ClientInterface
}

// NewStatsdReporter connects to the agent at addr, e.g. "127.0.0.1:8125".
func NewStatsdReporter(addr string) (*StatsdReporter, error) {
	client, err := statsd.New(addr, statsd.WithNamespace(namespace))
	if err != nil {
		return nil, err
	}
	return &StatsdReporter{client: client}, nil
}

func (r *StatsdReporter) Incr(name string, tags ...string) {
	if err := r.client.Incr(name, tags, 1); err != nil {
		Logger.Log.Debugln("cannot report metric ", name, err)
	}
}

func (r *StatsdReporter) Count(name string, value int64, tags ...string) {
	if err := r.client.Count(name, value, tags, 1); err != nil {
		Logger.Log.Debugln("cannot report metric ", name, err)
	}
}

func (r *StatsdReporter) Timing(name string, d time.Duration, tags ...string) {
	if err := r.client.Timing(name, d, tags, 1); err != nil {
		Logger.Log.Debugln("cannot report metric ", name, err)
	}
}

func (r *StatsdReporter) Close() error {
	return r.client.Close()
}

// Noop drops every metric.
type Noop struct{}

func (Noop) Incr(name string, tags ...string)                    {}
func (Noop) Count(name string, value int64, tags ...string)      {}
func (Noop) Timing(name string, d time.Duration, tags ...string) {}

// New returns a StatsdReporter for addr, or Noop when addr is empty.
func New(addr string) (Reporter, error) {
	if addr == "" {
		return Noop{}, nil
	}
	return NewStatsdReporter(addr)
}
