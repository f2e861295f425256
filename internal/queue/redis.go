package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const jobListKey = "docgate:jobs"

// RedisBroker queues job IDs on a Redis list, decoupling job submission from
// the worker processes. BRPOP delivers each ID to exactly one worker.
type RedisBroker struct {
	rdb *goredis.Client
	key string
}

// NewRedisBroker connects to Redis at addr and verifies the connection with a
// ping before returning.
func NewRedisBroker(addr string, db int) (*RedisBroker, error) {
	if addr == "" {
		return nil, errors.New("redis address must not be empty")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroker{rdb: rdb, key: jobListKey}, nil
}

func (b *RedisBroker) Enqueue(ctx context.Context, jobID string) error {
	if err := b.rdb.LPush(ctx, b.key, jobID).Err(); err != nil {
		return fmt.Errorf("lpush job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks on BRPOP with a short timeout so it can observe ctx
// cancellation between polls.
func (b *RedisBroker) Dequeue(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res, err := b.rdb.BRPop(ctx, 5*time.Second, b.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("brpop: %w", err)
		}
		// BRPOP returns [key, value].
		if len(res) != 2 {
			return "", fmt.Errorf("brpop: unexpected reply length %d", len(res))
		}
		return res[1], nil
	}
}

func (b *RedisBroker) Kind() string { return "redis" }

func (b *RedisBroker) Close() error { return b.rdb.Close() }
