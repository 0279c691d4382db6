package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettle        = 2 * time.Second
	PercentageMultiplier = 100
	progressInterval     = time.Second
)
