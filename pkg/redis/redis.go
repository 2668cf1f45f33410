package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage is one entry read from a Redis stream.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

// RedisAdapter is the subset of Redis the ledger needs: simple keys for
// idempotency markers and streams for the movement event queue.
type RedisAdapter interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)

	XAdd(key string, values map[string]interface{}) (string, error)
	XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error)
	XAck(key, group string, ids ...string) error
	XGroupCreateMkStream(key, group, start string) error
	XLen(key string) (int64, error)
	XDel(key string, ids ...string) error
	XTrimApprox(key string, maxLen int64) error
	XPending(key, group string) (*goredis.XPending, error)
	XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error)
	XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)

	Client() goredis.UniversalClient
}

type redisAdapter struct {
	prefix string
	conn   goredis.UniversalClient
}

var (
	redisLock     = &sync.RWMutex{}
	redisInstance map[string]RedisAdapter
)

// NewRedisAdapter returns the adapter registered under connName, creating
// and caching it on first use.
func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	redisLock.RLock()
	if adapter, ok := redisInstance[connName]; ok {
		redisLock.RUnlock()
		return adapter, nil
	}
	redisLock.RUnlock()

	redisLock.Lock()
	defer redisLock.Unlock()
	if adapter, ok := redisInstance[connName]; ok {
		return adapter, nil
	}

	client := goredis.NewUniversalClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	adapter := &redisAdapter{prefix: keysPrefix, conn: client}
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	redisInstance[connName] = adapter
	return adapter, nil
}

func (r *redisAdapter) k(key string) string {
	return r.prefix + key
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.conn
}

func (r *redisAdapter) Set(key string, value []byte, ttl time.Duration) error {
	return r.conn.Set(context.Background(), r.k(key), value, ttl).Err()
}

func (r *redisAdapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return r.conn.SetNX(context.Background(), r.k(key), value, ttl).Result()
}

func (r *redisAdapter) Get(key string) ([]byte, error) {
	return r.conn.Get(context.Background(), r.k(key)).Bytes()
}

func (r *redisAdapter) Del(key string) error {
	return r.conn.Del(context.Background(), r.k(key)).Err()
}

func (r *redisAdapter) Exist(key string) (int64, error) {
	return r.conn.Exists(context.Background(), r.k(key)).Result()
}

func (r *redisAdapter) XAdd(key string, values map[string]interface{}) (string, error) {
	return r.conn.XAdd(context.Background(), &goredis.XAddArgs{
		Stream: r.k(key),
		Values: values,
	}).Result()
}

func (r *redisAdapter) XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error) {
	streams, err := r.conn.XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.k(key), id},
		Count:    count,
		Block:    -1,
	}).Result()
	if err != nil {
		return nil, err
	}
	return flattenStreams(streams), nil
}

func (r *redisAdapter) XAck(key, group string, ids ...string) error {
	return r.conn.XAck(context.Background(), r.k(key), group, ids...).Err()
}

func (r *redisAdapter) XGroupCreateMkStream(key, group, start string) error {
	return r.conn.XGroupCreateMkStream(context.Background(), r.k(key), group, start).Err()
}

func (r *redisAdapter) XLen(key string) (int64, error) {
	return r.conn.XLen(context.Background(), r.k(key)).Result()
}

func (r *redisAdapter) XDel(key string, ids ...string) error {
	return r.conn.XDel(context.Background(), r.k(key), ids...).Err()
}

func (r *redisAdapter) XTrimApprox(key string, maxLen int64) error {
	return r.conn.XTrimMaxLenApprox(context.Background(), r.k(key), maxLen, 0).Err()
}

func (r *redisAdapter) XPending(key, group string) (*goredis.XPending, error) {
	return r.conn.XPending(context.Background(), r.k(key), group).Result()
}

func (r *redisAdapter) XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error) {
	return r.conn.XPendingExt(context.Background(), &goredis.XPendingExtArgs{
		Stream: r.k(key),
		Group:  group,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
}

func (r *redisAdapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	msgs, err := r.conn.XClaim(context.Background(), &goredis.XClaimArgs{
		Stream:   r.k(key),
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
	}
	return out, nil
}

func flattenStreams(streams []goredis.XStream) []StreamMessage {
	var out []StreamMessage
	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
		}
	}
	return out
}
