package watchlist

import (
	"github.com/shopspring/decimal"

	"github.com/kelsos/coinfolio/internal/models"
)

// DefaultHoldings is the holdings value of the seed tokens.
var DefaultHoldings = decimal.RequireFromString("1.5")

// DefaultCoins are the well-known tokens the dashboard always shows.
var DefaultCoins = []string{
	"bitcoin",
	"ethereum",
	"solana",
	"dogecoin",
	"usd-coin",
	"stellar",
}

// Entry is the input of Add and AddBatch.
type Entry struct {
	ExternalID string
	Holdings   decimal.Decimal
}

// Snapshot is the persisted form of the store.
type Snapshot struct {
	Tokens []models.WatchedToken `json:"tokens"`
	NextID int                   `json:"next_id"`
}

// Store holds the ordered watchlist. It is not safe for concurrent use;
// it is owned by the event loop.
type Store struct {
	tokens []models.WatchedToken
	nextID int
}

// NewStore returns a store in the cold-start seed state.
func NewStore() *Store {
	s := &Store{nextID: 1}
	for _, id := range DefaultCoins {
		s.Add(id, DefaultHoldings)
	}
	return s
}

// Add appends a token and returns it. Adding an external id that is
// already tracked returns the existing token unchanged.
func (s *Store) Add(externalID string, holdings decimal.Decimal) models.WatchedToken {
	if existing, ok := s.FindByExternalID(externalID); ok {
		return existing
	}

	token := models.WatchedToken{
		LocalID:    s.nextID,
		ExternalID: models.NormalizeID(externalID),
		Holdings:   holdings,
	}
	s.tokens = append(s.tokens, token)
	s.nextID++
	return token
}

// AddBatch adds every entry in order.
func (s *Store) AddBatch(entries []Entry) []models.WatchedToken {
	added := make([]models.WatchedToken, 0, len(entries))
	for _, e := range entries {
		added = append(added, s.Add(e.ExternalID, e.Holdings))
	}
	return added
}

// Update replaces the holdings of localID in place. Unknown ids are ignored.
func (s *Store) Update(localID int, holdings decimal.Decimal) bool {
	for i := range s.tokens {
		if s.tokens[i].LocalID == localID {
			s.tokens[i].Holdings = holdings
			return true
		}
	}
	return false
}

// Remove deletes localID if present.
func (s *Store) Remove(localID int) bool {
	for i, t := range s.tokens {
		if t.LocalID == localID {
			s.tokens = append(s.tokens[:i:i], s.tokens[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the watchlist. The id counter keeps counting.
func (s *Store) Clear() {
	s.tokens = nil
}

// Tokens returns a copy of the ordered watchlist.
func (s *Store) Tokens() []models.WatchedToken {
	out := make([]models.WatchedToken, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Len returns the number of tracked tokens.
func (s *Store) Len() int {
	return len(s.tokens)
}

// NextID returns the id the next added token will get.
func (s *Store) NextID() int {
	return s.nextID
}

// FindByExternalID looks a token up by its normalized external id.
func (s *Store) FindByExternalID(externalID string) (models.WatchedToken, bool) {
	key := models.NormalizeID(externalID)
	for _, t := range s.tokens {
		if models.NormalizeID(t.ExternalID) == key {
			return t, true
		}
	}
	return models.WatchedToken{}, false
}

// Snapshot returns the persistable state.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Tokens: s.Tokens(), NextID: s.nextID}
}

// Restore replaces the whole state with snap. The counter is raised past
// the highest stored id so ids are never reused. Duplicate external ids are
// dropped; tokens with a duplicate or invalid local id get a fresh one.
func (s *Store) Restore(snap Snapshot) {
	s.tokens = s.tokens[:0:0]
	nextID := snap.NextID
	seenLocal := make(map[int]bool, len(snap.Tokens))
	var renumber []int
	for _, t := range snap.Tokens {
		if _, dup := s.FindByExternalID(t.ExternalID); dup {
			continue
		}
		t.ExternalID = models.NormalizeID(t.ExternalID)
		if t.LocalID < 1 || seenLocal[t.LocalID] {
			renumber = append(renumber, len(s.tokens))
		} else {
			seenLocal[t.LocalID] = true
			if t.LocalID >= nextID {
				nextID = t.LocalID + 1
			}
		}
		s.tokens = append(s.tokens, t)
	}
	if nextID < 1 {
		nextID = 1
	}
	for _, i := range renumber {
		s.tokens[i].LocalID = nextID
		nextID++
	}
	s.nextID = nextID
}
