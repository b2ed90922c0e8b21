package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

const DefaultRedisChannel = "sensorbridge"

// RedisConfig configures the Redis Pub/Sub sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Channel is the Pub/Sub channel; "%s" is replaced with the device name.
	Channel string
}

// redisPublisher is the subset of *redis.Client the sink uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Redis publishes samples as JSON on a Pub/Sub channel. Nothing is written
// to keys or lists.
type Redis struct {
	client  redisPublisher
	channel string
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return newRedis(client, cfg.Channel), nil
}

func newRedis(client redisPublisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Name() string { return "redis" }

// Publish sends the sample to the channel. Having no subscribers is not an error.
func (r *Redis) Publish(ctx context.Context, s telemetry.Sample) error {
	payload, err := encode(s)
	if err != nil {
		return err
	}

	channel := topicFor(r.channel, s.Device)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
