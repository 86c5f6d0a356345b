package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-question-bank/internal/config"
	"interview-question-bank/internal/models"
)

// DefaultName is the queue used when callers pass an empty name.
const DefaultName = "default"

// RedisQueue is a FIFO work queue on top of Redis lists. Items are pushed to
// the tail and popped from the head.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue builds a queue client from config.
func NewRedisQueue(cfg config.Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewWithClient(client)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, prefix: "queue:"}
}

// Client exposes the underlying connection so other Redis-backed components
// can share it.
func (q *RedisQueue) Client() *redis.Client {
	return q.client
}

// Close releases the connection pool.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping checks connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) key(name string) string {
	if name == "" {
		name = DefaultName
	}
	return q.prefix + name
}

// Push appends an item to the tail and returns the new queue length.
func (q *RedisQueue) Push(ctx context.Context, item models.QueueItem, name string) (int64, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return 0, fmt.Errorf("marshal queue item: %w", err)
	}
	n, err := q.client.RPush(ctx, q.key(name), raw).Result()
	if err != nil {
		return 0, fmt.Errorf("push %s: %w", q.key(name), err)
	}
	return n, nil
}

// Pop returns the head item, removing it unless remove is false. It returns
// nil when the queue is empty.
func (q *RedisQueue) Pop(ctx context.Context, name string, remove bool) (*models.QueueItem, error) {
	var raw string
	var err error
	if remove {
		raw, err = q.client.LPop(ctx, q.key(name)).Result()
	} else {
		raw, err = q.client.LIndex(ctx, q.key(name), 0).Result()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop %s: %w", q.key(name), err)
	}
	return decodeItem(raw)
}

// PopWait blocks up to timeout for an item to arrive. It returns nil when the
// timeout elapses with the queue still empty.
func (q *RedisQueue) PopWait(ctx context.Context, name string, timeout time.Duration) (*models.QueueItem, error) {
	if timeout < time.Second {
		// BLPOP timeouts below one second are not portable across servers.
		timeout = time.Second
	}
	res, err := q.client.BLPop(ctx, timeout, q.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blocking pop %s: %w", q.key(name), err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected blpop reply length %d", len(res))
	}
	return decodeItem(res[1])
}

// PeekAll returns every queued item without removing anything. Entries
// that do not decode are skipped, as RemoveByID does; Length still counts
// them.
func (q *RedisQueue) PeekAll(ctx context.Context, name string) ([]models.QueueItem, error) {
	raws, err := q.client.LRange(ctx, q.key(name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", q.key(name), err)
	}
	items := make([]models.QueueItem, 0, len(raws))
	for _, raw := range raws {
		item, err := decodeItem(raw)
		if err != nil {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// RemoveByID removes every occurrence of items carrying id and returns how
// many were removed.
func (q *RedisQueue) RemoveByID(ctx context.Context, id string, name string) (int64, error) {
	key := q.key(name)
	raws, err := q.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", key, err)
	}

	seen := make(map[string]struct{})
	pipe := q.client.TxPipeline()
	cmds := make([]*redis.IntCmd, 0)
	for _, raw := range raws {
		if _, dup := seen[raw]; dup {
			continue
		}
		item, err := decodeItem(raw)
		if err != nil || item.ID != id {
			continue
		}
		seen[raw] = struct{}{}
		cmds = append(cmds, pipe.LRem(ctx, key, 0, raw))
	}
	if len(cmds) == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("remove %s from %s: %w", id, key, err)
	}
	var removed int64
	for _, c := range cmds {
		removed += c.Val()
	}
	return removed, nil
}

// Clear drops the whole queue.
func (q *RedisQueue) Clear(ctx context.Context, name string) (bool, error) {
	if err := q.client.Del(ctx, q.key(name)).Err(); err != nil {
		return false, fmt.Errorf("clear %s: %w", q.key(name), err)
	}
	return true, nil
}

// Length returns the number of queued items.
func (q *RedisQueue) Length(ctx context.Context, name string) (int64, error) {
	n, err := q.client.LLen(ctx, q.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("length %s: %w", q.key(name), err)
	}
	return n, nil
}

func decodeItem(raw string) (*models.QueueItem, error) {
	var item models.QueueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("decode queue item: %w", err)
	}
	return &item, nil
}
