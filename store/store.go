// Package store defines the small capability set the timeline engine needs from
// a key-value store: hash records, sets, score ordered collections, an atomic
// counter and pipelined execution. The engine never talks to a concrete store
// directly, RedisStore is the production implementation.
package store

import (
	"context"
)

// Store is safe for concurrent use.
type Store interface {
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// HGetAll returns all fields of the record at key, empty map when absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	SIsMember(ctx context.Context, key string, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	// SRandMember returns a uniformly drawn member, ok is false on empty set.
	SRandMember(ctx context.Context, key string) (member string, ok bool, err error)
	// Scan iterates the members of a set without loading it into memory. Members
	// may be returned more than once if the set changes during iteration.
	Scan(ctx context.Context, key string, pageSize int64) Iterator

	// ZRevRange returns members ranked start..stop by score descending.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
	// ZMin and ZMax return the lowest and highest scored entries.
	ZMin(ctx context.Context, key string) (entry ZEntry, ok bool, err error)
	ZMax(ctx context.Context, key string) (entry ZEntry, ok bool, err error)
	// ZSuccessor returns the lowest scored entry with score >= min.
	ZSuccessor(ctx context.Context, key string, min float64) (entry ZEntry, ok bool, err error)

	// Pipeline returns a batch whose operations are all issued and each
	// individually applied, without cross operation atomicity.
	Pipeline() Pipeline
	// TxPipeline returns a batch that is applied all-or-nothing.
	TxPipeline() Pipeline

	Ping(ctx context.Context) error
	Close() error
}

// ZEntry is a member of a score ordered collection.
type ZEntry struct {
	Member string
	Score  float64
}

// Pipeline queues operations and sends them in one round-trip on Exec. Replies
// returned by queue methods are only populated after Exec returns. A Pipeline is
// not safe for concurrent use and is reset after each Exec.
type Pipeline interface {
	HSet(key string, values map[string]interface{})
	HGetAll(key string) *MapReply
	ZAdd(key string, member string, score float64)
	ZRemRangeByRank(key string, start, stop int64)
	// SAdd replies with the number of members actually added.
	SAdd(key string, member string) *IntReply

	// Len returns the number of queued operations.
	Len() int
	Exec(ctx context.Context) error
}

// Iterator walks a set lazily:
//
//	it := s.Scan(ctx, key, 100)
//	for it.Next(ctx) {
//		use(it.Val())
//	}
//	if err := it.Err(); err != nil {...}
type Iterator interface {
	Next(ctx context.Context) bool
	Val() string
	Err() error
}

// IntReply holds an integer result of a pipelined operation.
type IntReply struct {
	val int64
}

func (r *IntReply) Val() int64 {
	return r.val
}

// MapReply holds a record result of a pipelined operation.
type MapReply struct {
	val map[string]string
}

func (r *MapReply) Val() map[string]string {
	return r.val
}
