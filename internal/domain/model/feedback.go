package model

import (
	"fmt"
	"strings"
	"time"
)

// Action is the kind of feedback a user gave on a paper.
type Action string

const (
	ActionSave       Action = "save"
	ActionDismiss    Action = "dismiss"
	ActionThumbsUp   Action = "thumbs_up"
	ActionThumbsDown Action = "thumbs_down"
	ActionHide       Action = "hide"
)

// ParseAction converts a raw string into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSave, ActionDismiss, ActionThumbsUp, ActionThumbsDown, ActionHide:
		return a, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownAction)
	}
}

// Sign is +1 for reinforcing actions and -1 for repelling ones.
func (a Action) Sign() float64 {
	if a.Positive() {
		return 1
	}
	return -1
}

// Positive reports whether the action reinforces interest.
func (a Action) Positive() bool {
	return a == ActionSave || a == ActionThumbsUp
}

// FeedbackEvent is an immutable, append-only feedback record.
type FeedbackEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PaperID   string    `json:"paper_id"`
	Action    Action    `json:"action"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}
