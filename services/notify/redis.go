// Package notifysvc publishes cache invalidation topics after writes.
package notifysvc

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

// Channel is the redis channel invalidation topics are published on.
const Channel = "escuela:invalidations"

type redisNotifier struct {
	client *redis.Client
}

var _ core.Notifier = (*redisNotifier)(nil)

// NewRedisNotifier connects to the configured redis server.
func NewRedisNotifier(ctx context.Context, conf *core.Config) (core.Notifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisNotifier{client: client}, nil
}

func (n *redisNotifier) Publish(ctx context.Context, topic string) error {
	return errors.Wrapf(n.client.Publish(ctx, Channel, topic).Err(), "publishing %q", topic)
}

func (n *redisNotifier) Close() error {
	return n.client.Close()
}

// Subscribe calls fn with every topic published until ctx is done.
func Subscribe(ctx context.Context, conf *core.Config, fn func(topic string)) error {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	defer func() { _ = client.Close() }()

	sub := client.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing")
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}
