package stream

import (
	"context"
	"sync"
	"time"

	"tradesim/internal/bridge"
	"tradesim/internal/events"
	"tradesim/internal/model"
)

// Manager hands out at most one session per strategy id. Sessions are fully
// independent of each other; there is no cross-session ordering.
type Manager struct {
	mu         sync.Mutex
	bridge     *bridge.Client
	bus        *events.Bus
	maxRetries int
	retryDelay time.Duration
	sessions   map[string]*Session
}

// NewManager builds an empty session registry.
func NewManager(b *bridge.Client, bus *events.Bus, maxRetries int, retryDelay time.Duration) *Manager {
	return &Manager{
		bridge:     b,
		bus:        bus,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sessions:   make(map[string]*Session),
	}
}

// Start opens (or re-uses) the session for the strategy. Starting twice for
// the same id is a no-op through the session's idempotency contract.
func (m *Manager) Start(ctx context.Context, strategy model.Strategy) error {
	m.mu.Lock()
	sess, ok := m.sessions[strategy.ID]
	if !ok {
		sess = NewSession(m.bridge, m.bus, m.maxRetries, m.retryDelay)
		m.sessions[strategy.ID] = sess
	}
	m.mu.Unlock()
	return sess.Start(ctx, strategy)
}

// Get returns the live session for a strategy id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Stop tears down and forgets the session for a strategy id.
func (m *Manager) Stop(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		sess.Stop()
	}
}

// StopAll tears down every session; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.Stop()
	}
}
