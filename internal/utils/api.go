package utils

import (
	"context"
	"time"

	"github.com/kelsos/coinfolio/internal/logger"
)

// Pinger checks that a remote API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForAPIReady pings api until it answers, up to maxAttempts times with
// delay between attempts. It reports whether the API became reachable.
func WaitForAPIReady(ctx context.Context, api Pinger, maxAttempts int, delay time.Duration) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.Debug("Checking market API (attempt %d/%d)...", attempt, maxAttempts)

		err := api.Ping(ctx)
		if err == nil {
			logger.Info("Market API is reachable")
			return true
		}
		logger.Warn("Market API not reachable: %v", err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	return false
}
