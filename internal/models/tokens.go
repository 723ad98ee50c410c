package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WatchedToken is a tracked token with the holdings entered by the user.
type WatchedToken struct {
	LocalID    int             `json:"local_id"`
	ExternalID string          `json:"external_id"`
	Holdings   decimal.Decimal `json:"holdings"`
}

// NormalizeID returns the join key used between watchlist entries and quotes.
func NormalizeID(externalID string) string {
	return strings.ToLower(strings.TrimSpace(externalID))
}
