package app

import "errors"

var (
	// ErrNotStarted is returned when feedback is submitted before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidFeedback is returned for feedback missing a user or paper.
	ErrInvalidFeedback = errors.New("invalid feedback")
	// ErrBusy is returned when the feedback queue cannot take more events.
	ErrBusy = errors.New("feedback intake is saturated")
)
