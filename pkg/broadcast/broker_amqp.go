package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"helixrecruit/pkg/domain"
)

const defaultAMQPExchange = "helix.sequence.updates"

// AMQPBroker distributes sequence updates through a RabbitMQ fanout exchange.
// Each subscriber consumes from its own exclusive, auto-deleted queue, so
// every instance sees every update.
type AMQPBroker struct {
	conn     *amqp.Connection
	pubCh    *amqp.Channel
	exchange string
}

// NewAMQPBroker dials the broker and declares the fanout exchange.
// exchange defaults to "helix.sequence.updates" when empty.
func NewAMQPBroker(url, exchange string) (*AMQPBroker, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = defaultAMQPExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", false, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPBroker{conn: conn, pubCh: ch, exchange: exchange}, nil
}

func (b *AMQPBroker) Publish(ctx context.Context, seq domain.Sequence) error {
	payload, err := json.Marshal(seq)
	if err != nil {
		return err
	}
	return b.pubCh.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
}

func (b *AMQPBroker) Subscribe(ctx context.Context, fn func(domain.Sequence)) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		return err
	}
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp subscription closed")
			}
			var seq domain.Sequence
			if err := json.Unmarshal(d.Body, &seq); err != nil {
				slog.Warn("discarding malformed sequence update", "err", err)
				continue
			}
			fn(seq)
		}
	}
}

func (b *AMQPBroker) Close() error {
	if err := b.pubCh.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
