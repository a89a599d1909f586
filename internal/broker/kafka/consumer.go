package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Outcome — явное двухисходное подтверждение обработки сообщения.
type Outcome int

const (
	// Complete removes the message permanently.
	Complete Outcome = iota
	// DeadLetter moves the message to the quarantine topic; it is never
	// retried automatically.
	DeadLetter
)

// Handler processes one raw message body. Returning an error (with any
// outcome) means a transient failure: the message is left uncommitted and the
// broker redelivers it. Returning DeadLetter with a nil error quarantines it.
type Handler func(key, value []byte) (Outcome, error)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Consumer struct {
	r   messageReader
	dlq deadLetterProducer
	// Топик карантина: <topic>.dlq.
	dlqTopic string
}

func NewConsumer(brokers []string, topic, groupID string, dlq deadLetterProducer) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{
		r:        kafka.NewReader(cfg),
		dlq:      dlq,
		dlqTopic: topic + ".dlq",
	}
}

func newConsumerWithReader(r messageReader, dlq deadLetterProducer, dlqTopic string) *Consumer {
	return &Consumer{r: r, dlq: dlq, dlqTopic: dlqTopic}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}

		outcome, err := handler(msg.Key, msg.Value)
		if err != nil {
			// Транзиентная ошибка: commit не делаем, брокер передоставит.
			return err
		}

		if outcome == DeadLetter {
			if err := c.dlq.Publish(ctx, c.dlqTopic, msg.Key, msg.Value); err != nil {
				return errors.Wrap(err, "publish to dead-letter topic")
			}
			slog.Warn("message dead-lettered", "topic", c.dlqTopic, "offset", msg.Offset)
		}

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}
