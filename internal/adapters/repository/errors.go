package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrScoreNotFound    = errors.New("score not found")
	ErrBriefingNotFound = errors.New("briefing not found")
	ErrInvalidPaper     = errors.New("invalid paper")
	ErrInvalidProfile   = errors.New("invalid profile")
	ErrInvalidFeedback  = errors.New("invalid feedback event")
)
