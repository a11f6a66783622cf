package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"pharmacie-admin/pkg/eventbus"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisStorage keeps client state in redis so every BFF instance sees the same
// sessions. Writes are announced on a pub/sub channel; Listen relays the
// announcements of other instances to the local bus.
type RedisStorage struct {
	client   *redis.Client
	channel  string
	ttl      time.Duration
	instance string
	bus      *eventbus.Bus
	logger   *zap.Logger
}

func NewRedisStorage(client *redis.Client, channel string, ttl time.Duration, bus *eventbus.Bus, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{
		client:   client,
		channel:  channel,
		ttl:      ttl,
		instance: uuid.NewString(),
		bus:      bus,
		logger:   logger.Named("redis_storage"),
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (r *RedisStorage) Set(ctx context.Context, key string, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return err
	}
	r.announce(ctx, key)
	return nil
}

func (r *RedisStorage) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	for _, key := range keys {
		r.announce(ctx, key)
	}
	return nil
}

func (r *RedisStorage) announce(ctx context.Context, key string) {
	r.bus.Publish(ctx, eventbus.StorageChanged{Key: key})
	if err := r.client.Publish(ctx, r.channel, r.instance+"|"+key).Err(); err != nil {
		r.logger.Warn("failed to announce storage change", zap.String("key", key), zap.Error(err))
	}
}

// Listen relays storage-change announcements from other instances until ctx
// is cancelled.
func (r *RedisStorage) Listen(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("listening for storage changes", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, key, found := strings.Cut(msg.Payload, "|")
			if !found || origin == r.instance {
				continue
			}
			r.bus.Publish(ctx, eventbus.StorageChanged{Key: key})
		}
	}
}
