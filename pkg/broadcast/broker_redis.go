package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"helixrecruit/pkg/domain"
)

const defaultRedisChannel = "helix:sequence_updates"

// RedisBroker distributes sequence updates across instances via Redis
// pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker connects a broker to Redis. channel defaults to
// "helix:sequence_updates" when empty.
func NewRedisBroker(addr, password, channel string) (*RedisBroker, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultRedisChannel
	}
	return &RedisBroker{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		channel: channel,
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, seq domain.Sequence) error {
	payload, err := json.Marshal(seq)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, fn func(domain.Sequence)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var seq domain.Sequence
			if err := json.Unmarshal([]byte(msg.Payload), &seq); err != nil {
				slog.Warn("discarding malformed sequence update", "err", err)
				continue
			}
			fn(seq)
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
