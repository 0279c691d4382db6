package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/curio/internal/adapters/mq/queue"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink receives decoded events. The in-memory queue satisfies it.
type Sink interface {
	Enqueue(ctx context.Context, event model.FeedbackEvent) error
}

// Consumer reads feedback events with a consumer group and hands them to a Sink.
// Offsets are committed only after a successful hand-off.
type Consumer struct {
	reader       messageReader
	log          logger.Logger
	retryBackoff time.Duration
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, topic, groupID string, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	o := newOptions("kafka-consumer", opts)
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(r, o), nil
}

func newConsumer(r messageReader, o options) *Consumer {
	return &Consumer{reader: r, log: o.log, retryBackoff: o.retryBackoff}
}

// Run consumes until ctx is done. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context, sink Sink) error {
	c.log.Info(ctx, "kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.RecordErrorByComponent("kafka", "fetch_error")
			return fmt.Errorf("fetch message: %w", err)
		}

		event, err := Decode(msg)
		if err != nil {
			c.log.Warn(ctx, "dropping malformed feedback message",
				logger.Int("partition", msg.Partition),
				logger.Any("offset", msg.Offset),
				logger.Error(err))
			metrics.RecordErrorByComponent("kafka", "malformed_message")
			if err := c.commit(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := c.handOff(ctx, sink, event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.commit(ctx, msg); err != nil {
			return err
		}
	}
}

// handOff retries while the sink is full so the offset is never committed for a lost event.
func (c *Consumer) handOff(ctx context.Context, sink Sink, event model.FeedbackEvent) error { //nolint:gocritic // hugeParam
	for {
		err := sink.Enqueue(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, queue.ErrClosed) {
			return err
		}
		c.log.Debug(ctx, "sink rejected feedback event, retrying",
			logger.String("event_id", event.ID),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryBackoff):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error { //nolint:gocritic // hugeParam
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		metrics.RecordErrorByComponent("kafka", "commit_error")
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
