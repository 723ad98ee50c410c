package utils

import "time"

// HasEnoughTimeElapsed reports whether more than d has passed since t.
// A zero t never counts as elapsed.
func HasEnoughTimeElapsed(t time.Time, d time.Duration) bool {
	if t.IsZero() {
		return false
	}
	return time.Since(t) > d
}
