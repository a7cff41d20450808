package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/blueriver/escalation-service/internal/config"
)

// ErrNotConfigured is returned when a dependency was never connected.
var ErrNotConfigured = errors.New("dependency not configured")

// Redis wraps the go-redis client. Besides health checks it carries the
// broadcast channel that real-time clients consume escalation notifications
// from.
type Redis struct {
	Client  *redis.Client
	channel string
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client, channel: cfg.Channel}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// Broadcast publishes a payload on the escalation pub/sub channel.
// Delivery is at-least-once from the subscriber's point of view; ordering is
// only guaranteed per ticket because all mutations to one ticket serialize
// through the engine's transition primitive.
func (r *Redis) Broadcast(ctx context.Context, payload []byte) error {
	if r == nil || r.Client == nil {
		return ErrNotConfigured
	}
	return r.Client.Publish(ctx, r.channel, payload).Err()
}
