// Package kafka carries feedback events through a Kafka topic so several
// intake processes can feed one worker pool.
package kafka

import (
	"context"
	"fmt"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes feedback events to a topic.
type Publisher struct {
	writer messageWriter
	log    logger.Logger
}

// NewPublisher creates a publisher. Records with the same user id land on the same partition.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	o := newOptions("kafka-publisher", opts)
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &Publisher{writer: w, log: o.log}, nil
}

// Publish writes one event.
func (p *Publisher) Publish(ctx context.Context, event model.FeedbackEvent) error { //nolint:gocritic // hugeParam
	msg, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordErrorByComponent("kafka", "publish_error")
		return fmt.Errorf("publish feedback event %s: %w", event.ID, err)
	}
	p.log.Debug(ctx, "feedback event published",
		logger.String("event_id", event.ID),
		logger.String("user_id", event.UserID))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
