package engine

import (
	"time"

	"github.com/google/uuid"
)

// nowMicros returns a monotonic-enough microsecond timestamp for order
// arrival ordering and trade timestamps.
func nowMicros() int64 { return time.Now().UnixMicro() }

// newTradeID generates a fresh trade identifier.
func newTradeID() string { return uuid.NewString() }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
