package kafka

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Предел размера одного сообщения в батче. Должен совпадать с
// message.max.bytes на брокере, иначе брокер отклонит весь батч.
const defaultMaxMessageBytes = 1 << 20 // 1 MiB

// BatchTooLargeError is a construction error: the payload at Index does not
// fit into an otherwise-empty batch. Nothing from the batch has been sent.
type BatchTooLargeError struct {
	Index int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("message %d is too large to fit in the batch", e.Index)
}

type Producer struct {
	w               *kafka.Writer
	maxMessageBytes int
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		maxMessageBytes: defaultMaxMessageBytes,
	}
}

func (p *Producer) WithMaxMessageBytes(n int) *Producer {
	if n > 0 {
		p.maxMessageBytes = n
	}
	return p
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// PublishBatch отправляет пачку значений в один топик: либо уходит всё, либо
// ничего. Негабаритное сообщение — ошибка конструирования батча, а не
// транспортная; сообщаем его позицию.
func (p *Producer) PublishBatch(ctx context.Context, topic string, values [][]byte) error {
	if len(values) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(values))
	for i, v := range values {
		if len(v) > p.maxMessageBytes {
			return &BatchTooLargeError{Index: i}
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Value: v})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "kafka publish batch")
	}
	return nil
}
