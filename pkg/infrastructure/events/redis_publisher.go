package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the redis list events are pushed to when none is configured.
const DefaultQueue = "mrp:events"

// RedisPublisher pushes events as JSON envelopes onto a redis list, newest at
// the head. Consumers pop from the tail with BRPOP.
type RedisPublisher struct {
	rdb   redis.Cmdable
	queue string
}

func NewRedisPublisher(rdb redis.Cmdable, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{rdb: rdb, queue: queue}
}

// NewRedisClient parses a redis URL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	encoded := make([]interface{}, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(envelopeOf(e))
		if err != nil {
			return err
		}
		encoded = append(encoded, data)
	}
	return p.rdb.LPush(ctx, p.queue, encoded...).Err()
}
