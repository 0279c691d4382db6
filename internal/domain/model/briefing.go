package model

import "time"

// BriefingStatus describes the lifecycle of a briefing.
type BriefingStatus string

const (
	BriefingReady BriefingStatus = "ready"
)

// Briefing is the digest for one user on one day.
type Briefing struct {
	ID           string
	UserID       string
	Date         time.Time // midnight UTC
	PaperIDs     []string
	PaperCount   int
	ExploitCount int
	ExploreCount int
	AvgScore     float64
	Status       BriefingStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DigestDate truncates t to midnight UTC, the key of a daily briefing.
func DigestDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Clone returns a copy with its own PaperIDs slice.
func (b Briefing) Clone() Briefing {
	out := b
	out.PaperIDs = append([]string(nil), b.PaperIDs...)
	return out
}
