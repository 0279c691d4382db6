package kafka

import "errors"

var (
	// ErrMalformedMessage is returned when a record cannot be decoded into a feedback event.
	ErrMalformedMessage = errors.New("malformed feedback message")
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("no kafka brokers configured")
)
