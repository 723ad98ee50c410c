package portfolio

import (
	"time"

	"github.com/kelsos/coinfolio/internal/models"
)

// Board is the published portfolio state read by the presentation layer.
// Lines and total are always replaced together. It is owned by the event loop.
type Board struct {
	snapshot  Snapshot
	published bool
	updatedAt time.Time

	issued  uint64
	applied uint64
	floor   uint64
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{
		snapshot: Snapshot{Total: Total(nil)},
	}
}

// Begin issues the sequence number of a new refresh cycle.
func (b *Board) Begin() uint64 {
	b.issued++
	return b.issued
}

// Invalidate marks every cycle issued so far as stale. Used after a watchlist
// mutation so an older in-flight fetch cannot overwrite the newer state.
func (b *Board) Invalidate() {
	b.floor = b.issued
}

// Publish replaces the board contents with snapshot if seq is newer than
// both the last applied cycle and the invalidation floor. It reports whether
// the snapshot was applied.
func (b *Board) Publish(seq uint64, snapshot Snapshot, at time.Time) bool {
	if seq <= b.applied || seq <= b.floor {
		return false
	}
	b.applied = seq
	b.snapshot = cloneSnapshot(snapshot)
	b.published = true
	b.updatedAt = at
	return true
}

// RemoveLine drops the line for externalID and re-sums the remaining lines
// locally. It reports whether a line was removed.
func (b *Board) RemoveLine(externalID string) bool {
	key := models.NormalizeID(externalID)
	lines := make([]models.PortfolioLine, 0, len(b.snapshot.Lines))
	removed := false
	for _, l := range b.snapshot.Lines {
		if models.NormalizeID(l.Quote.ExternalID) == key {
			removed = true
			continue
		}
		lines = append(lines, l)
	}
	if !removed {
		return false
	}
	b.snapshot = Snapshot{Lines: lines, Total: Total(lines)}
	return true
}

// Line returns the published line for externalID.
func (b *Board) Line(externalID string) (models.PortfolioLine, bool) {
	key := models.NormalizeID(externalID)
	for _, l := range b.snapshot.Lines {
		if models.NormalizeID(l.Quote.ExternalID) == key {
			return l, true
		}
	}
	return models.PortfolioLine{}, false
}

// Snapshot returns a copy of the published state.
func (b *Board) Snapshot() Snapshot {
	return cloneSnapshot(b.snapshot)
}

// Published reports whether any cycle has completed yet.
func (b *Board) Published() bool {
	return b.published
}

// UpdatedAt returns the time of the last applied cycle.
func (b *Board) UpdatedAt() time.Time {
	return b.updatedAt
}

func cloneSnapshot(s Snapshot) Snapshot {
	lines := make([]models.PortfolioLine, len(s.Lines))
	copy(lines, s.Lines)
	return Snapshot{Lines: lines, Total: s.Total}
}
