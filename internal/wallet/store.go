package wallet

import (
	"strings"

	"github.com/kelsos/coinfolio/internal/models"
)

// EventKind distinguishes connector notifications.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a connection change reported by a connector.
type Event struct {
	Kind      EventKind
	Address   string
	Connector string
}

// Store mirrors the connector state. It is never authoritative and never
// persisted. It is owned by the event loop.
type Store struct {
	state models.WalletConnection
}

// NewStore returns a disconnected store.
func NewStore() *Store {
	return &Store{}
}

// Apply records a connector event.
func (s *Store) Apply(ev Event) {
	switch ev.Kind {
	case EventConnected:
		if !strings.EqualFold(s.state.Address, ev.Address) {
			s.state.Balance = nil
		}
		s.state.Address = ev.Address
		s.state.Connected = true
	case EventDisconnected:
		s.state = models.WalletConnection{}
	}
}

// SetBalance writes the balance queried for address; nil clears it. Results
// for an address that is no longer connected are ignored.
func (s *Store) SetBalance(address string, balance *models.NativeBalance) bool {
	if !s.state.Connected || !strings.EqualFold(s.state.Address, address) {
		return false
	}
	if balance != nil {
		b := *balance
		balance = &b
	}
	s.state.Balance = balance
	return true
}

// State returns a copy of the mirrored connection.
func (s *Store) State() models.WalletConnection {
	state := s.state
	if state.Balance != nil {
		b := *state.Balance
		state.Balance = &b
	}
	return state
}
