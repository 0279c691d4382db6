package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/okian/curio/internal/domain/model"
	"github.com/segmentio/kafka-go"
)

// Encode turns a feedback event into a record keyed by user id.
func Encode(event model.FeedbackEvent) (kafka.Message, error) { //nolint:gocritic // hugeParam
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode feedback event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
	}, nil
}

// Decode parses a record produced by Encode.
func Decode(msg kafka.Message) (model.FeedbackEvent, error) { //nolint:gocritic // hugeParam
	var event model.FeedbackEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return model.FeedbackEvent{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if event.UserID == "" || event.PaperID == "" {
		return model.FeedbackEvent{}, fmt.Errorf("%w: missing user or paper id", ErrMalformedMessage)
	}
	if _, err := model.ParseAction(string(event.Action)); err != nil {
		return model.FeedbackEvent{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return event, nil
}
