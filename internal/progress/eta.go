package progress

import (
	"fmt"
	"math"
	"time"
)

// ETAKind distinguishes a numeric estimate from the sentinels.
type ETAKind int

const (
	ETACalculating ETAKind = iota
	ETARemaining
	ETAComplete
	ETAFailed
)

// ETA is the remaining-time estimate for a run.
type ETA struct {
	Kind      ETAKind
	Remaining time.Duration // set only for ETARemaining
}

func (e ETA) String() string {
	switch e.Kind {
	case ETARemaining:
		return FormatRemaining(e.Remaining)
	case ETAComplete:
		return "Completed!"
	case ETAFailed:
		return "Failed."
	default:
		return "Calculating ETA..."
	}
}

// MarshalText renders the ETA the way the presentation layer shows it.
func (e ETA) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Failed is the sentinel published once a run fails.
func Failed() ETA { return ETA{Kind: ETAFailed} }

// Estimate extrapolates linearly from elapsed time and aggregate percent.
// At 0% the estimate is undefined and at 100% the job is complete; both
// return sentinels instead of a duration.
func Estimate(elapsed time.Duration, percent float64) ETA {
	if math.IsNaN(percent) || percent <= 0 {
		return ETA{Kind: ETACalculating}
	}
	if percent >= 100 {
		return ETA{Kind: ETAComplete}
	}
	elapsedMs := float64(elapsed.Milliseconds())
	total := elapsedMs * 100 / percent
	remaining := math.Round(total - elapsedMs)
	if math.IsNaN(remaining) || math.IsInf(remaining, 0) || remaining < 0 {
		remaining = 0
	}
	return ETA{Kind: ETARemaining, Remaining: time.Duration(remaining) * time.Millisecond}
}

// FormatRemaining renders d as "{m}m {s}s", or "{s}s" under a minute.
// Negative durations render as "0s".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0s"
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
