package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kelsos/coinfolio/internal/logger"
)

var (
	// ErrConnectorUnavailable is returned when the requested connector is not registered.
	ErrConnectorUnavailable = errors.New("wallet connector unavailable")
	// ErrNotConnected is returned by Disconnect when no wallet is connected.
	ErrNotConnected = errors.New("wallet not connected")
)

// Connector resolves the account of one kind of wallet.
type Connector interface {
	Name() string
	Open(ctx context.Context) (string, error)
}

// Manager is the wallet-connector capability: it connects through a chosen
// connector and notifies subscribers through Events.
type Manager struct {
	mu         sync.Mutex
	connectors map[string]Connector
	active     string
	address    string
	events     chan Event
}

// NewManager creates a manager with the given connectors.
func NewManager(connectors ...Connector) *Manager {
	m := &Manager{
		connectors: make(map[string]Connector, len(connectors)),
		events:     make(chan Event, 8),
	}
	for _, c := range connectors {
		m.connectors[c.Name()] = c
	}
	return m
}

// Choices lists the registered connector names.
func (m *Manager) Choices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.connectors))
	for name := range m.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect opens the wallet behind choice and emits a connected event.
func (m *Manager) Connect(ctx context.Context, choice string) error {
	m.mu.Lock()
	connector, ok := m.connectors[choice]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrConnectorUnavailable, choice)
	}

	address, err := connector.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect with %s: %w", choice, err)
	}

	m.mu.Lock()
	m.active = choice
	m.address = address
	m.mu.Unlock()

	logger.Info("Wallet connected through %s: %s", choice, address)
	m.emit(ctx, Event{Kind: EventConnected, Address: address, Connector: choice})
	return nil
}

// Disconnect drops the current connection and emits a disconnected event.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.address == "" {
		m.mu.Unlock()
		return ErrNotConnected
	}
	choice := m.active
	m.active = ""
	m.address = ""
	m.mu.Unlock()

	logger.Info("Wallet disconnected from %s", choice)
	m.emit(ctx, Event{Kind: EventDisconnected, Connector: choice})
	return nil
}

// Current returns the connected address, if any.
func (m *Manager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address, m.address != ""
}

// Events returns the notification channel.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
		logger.Warn("Dropped wallet %s event: %v", ev.Kind, ctx.Err())
	}
}
