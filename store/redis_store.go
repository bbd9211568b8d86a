package store

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements Store on top of a go-redis client. Sets map to SET,
// score ordered collections to ZSET and records to HASH.
type RedisStore struct {
	inner redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{inner: client}
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	v, err := r.inner.Incr(ctx, key).Result()
	return v, Unavailable("incr "+key, err)
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	v, err := r.inner.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, Unavailable("hgetall "+key, err)
	}
	return v, nil
}

func (r *RedisStore) SIsMember(ctx context.Context, key string, member string) (bool, error) {
	v, err := r.inner.SIsMember(ctx, key, member).Result()
	return v, Unavailable("sismember "+key, err)
}

func (r *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	v, err := r.inner.SCard(ctx, key).Result()
	return v, Unavailable("scard "+key, err)
}

func (r *RedisStore) SRandMember(ctx context.Context, key string) (string, bool, error) {
	v, err := r.inner.SRandMember(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, Unavailable("srandmember "+key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Scan(ctx context.Context, key string, pageSize int64) Iterator {
	return &redisIterator{
		key:   key,
		inner: r.inner.SScan(ctx, key, 0, "", pageSize).Iterator(),
	}
}

func (r *RedisStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	v, err := r.inner.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, Unavailable("zrevrange "+key, err)
	}
	return v, nil
}

func (r *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	v, err := r.inner.ZCard(ctx, key).Result()
	return v, Unavailable("zcard "+key, err)
}

func (r *RedisStore) ZMin(ctx context.Context, key string) (ZEntry, bool, error) {
	zs, err := r.inner.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return ZEntry{}, false, Unavailable("zrange "+key, err)
	}
	return firstEntry(zs)
}

func (r *RedisStore) ZMax(ctx context.Context, key string) (ZEntry, bool, error) {
	zs, err := r.inner.ZRevRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return ZEntry{}, false, Unavailable("zrevrange "+key, err)
	}
	return firstEntry(zs)
}

func (r *RedisStore) ZSuccessor(ctx context.Context, key string, min float64) (ZEntry, bool, error) {
	zs, err := r.inner.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:    strconv.FormatFloat(min, 'f', -1, 64),
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return ZEntry{}, false, Unavailable("zrangebyscore "+key, err)
	}
	return firstEntry(zs)
}

func (r *RedisStore) Pipeline() Pipeline {
	return &redisPipeline{inner: r.inner.Pipeline()}
}

func (r *RedisStore) TxPipeline() Pipeline {
	return &redisPipeline{inner: r.inner.TxPipeline()}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return Unavailable("ping", r.inner.Ping(ctx).Err())
}

func (r *RedisStore) Close() error {
	return r.inner.Close()
}

func firstEntry(zs []redis.Z) (ZEntry, bool, error) {
	if len(zs) == 0 {
		return ZEntry{}, false, nil
	}
	member, _ := zs[0].Member.(string)
	return ZEntry{Member: member, Score: zs[0].Score}, true, nil
}

type redisIterator struct {
	key   string
	inner *redis.ScanIterator
}

func (it *redisIterator) Next(ctx context.Context) bool {
	return it.inner.Next(ctx)
}

func (it *redisIterator) Val() string {
	return it.inner.Val()
}

func (it *redisIterator) Err() error {
	return Unavailable("sscan "+it.key, it.inner.Err())
}

// redisPipeline keeps a callback per queued reply so results are copied out of
// the go-redis commands once Exec returns.
type redisPipeline struct {
	inner redis.Pipeliner
	fills []func()
	n     int
}

func (p *redisPipeline) HSet(key string, values map[string]interface{}) {
	p.inner.HSet(context.Background(), key, values)
	p.n++
}

func (p *redisPipeline) HGetAll(key string) *MapReply {
	reply := &MapReply{}
	cmd := p.inner.HGetAll(context.Background(), key)
	p.fills = append(p.fills, func() { reply.val = cmd.Val() })
	p.n++
	return reply
}

func (p *redisPipeline) ZAdd(key string, member string, score float64) {
	p.inner.ZAdd(context.Background(), key, &redis.Z{Score: score, Member: member})
	p.n++
}

func (p *redisPipeline) ZRemRangeByRank(key string, start, stop int64) {
	p.inner.ZRemRangeByRank(context.Background(), key, start, stop)
	p.n++
}

func (p *redisPipeline) SAdd(key string, member string) *IntReply {
	reply := &IntReply{}
	cmd := p.inner.SAdd(context.Background(), key, member)
	p.fills = append(p.fills, func() { reply.val = cmd.Val() })
	p.n++
	return reply
}

func (p *redisPipeline) Len() int {
	return p.n
}

func (p *redisPipeline) Exec(ctx context.Context) error {
	if p.n == 0 {
		return nil
	}
	fills := p.fills
	p.fills = nil
	p.n = 0

	_, err := p.inner.Exec(ctx)
	if err != nil && err != redis.Nil {
		return Unavailable("pipeline exec", err)
	}
	for _, fill := range fills {
		fill()
	}
	return nil
}
