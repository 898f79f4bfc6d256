// Package session keeps the per-customer box-building state between RPCs.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/mealbox/internal/address"
	"github.com/mmynk/mealbox/internal/backend"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/storage"
	"github.com/mmynk/mealbox/internal/wizard"
)

// Session is one signed-in customer's workspace. Callers hold Lock for the
// duration of an RPC so that a customer's actions apply one at a time.
type Session struct {
	sync.Mutex

	CustomerID string
	Draft      *draft.Store
	Wizard     *wizard.Sequencer
	Cart       *cart.Cart
	Address    *address.Debouncer

	// Catalog is nil until the first successful catalog load.
	Catalog *backend.Snapshot
	// Profile is nil until fetched.
	Profile *models.Profile

	version   uint64
	updatedAt time.Time
	store     storage.CartStore
	cancel    func()

	// lastSeen is guarded by Manager.mu.
	lastSeen time.Time
}

// State is what the step predicates need.
func (s *Session) State() wizard.State {
	return wizard.State{
		Draft:              s.Draft.Snapshot(),
		AvailabilityLoaded: s.Catalog != nil,
	}
}

// Version counts draft changes; a client can compare it to spot stale views.
func (s *Session) Version() uint64 {
	return s.version
}

// UpdatedAt is when the draft last changed.
func (s *Session) UpdatedAt() time.Time {
	return s.updatedAt
}

// SaveCart persists the cart.
func (s *Session) SaveCart(ctx context.Context) error {
	if err := s.store.SaveCart(ctx, s.CustomerID, s.Cart.Items()); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Manager creates sessions on first use and ends them on sign-out or after
// they sit idle.
type Manager struct {
	store    storage.CartStore
	lookup   address.Lookup
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager that persists carts in store and serves
// address suggestions from lookup.
func NewManager(store storage.CartStore, lookup address.Lookup, debounce time.Duration) *Manager {
	return &Manager{
		store:    store,
		lookup:   lookup,
		debounce: debounce,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for customerID, creating it and loading the saved
// cart if needed.
func (m *Manager) Get(ctx context.Context, customerID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[customerID]; ok {
		s.lastSeen = m.now()
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	items, err := m.store.LoadCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have won the race while the cart was loading.
	if s, ok := m.sessions[customerID]; ok {
		s.lastSeen = m.now()
		return s, nil
	}

	s := &Session{
		CustomerID: customerID,
		Draft:      draft.NewStore(),
		Wizard:     wizard.New(),
		Cart:       cart.New(items),
		Address:    address.NewDebouncer(m.lookup, m.debounce),
		store:      m.store,
		updatedAt:  m.now(),
		lastSeen:   m.now(),
	}
	s.cancel = s.Draft.Subscribe(func(draft.Draft) {
		s.version++
		s.updatedAt = m.now()
	})
	m.sessions[customerID] = s

	slog.Info("Session started", "customer_id", customerID, "cart_items", len(items))
	return s, nil
}

// End discards the in-memory session. The saved cart is kept.
func (m *Manager) End(customerID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[customerID]
	delete(m.sessions, customerID)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	slog.Info("Session ended", "customer_id", customerID)
	return true
}

func (s *Session) close() {
	s.cancel()
	s.Address.Stop()
}

// EvictIdle ends every session not used for longer than idle and returns how
// many were ended. Sessions busy with an RPC are skipped. Saved carts are
// kept, so the customer's next call starts a fresh session with the same cart.
func (m *Manager) EvictIdle(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if !s.lastSeen.Before(cutoff) || !s.TryLock() {
			continue
		}
		delete(m.sessions, id)
		s.Unlock()
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.close()
		slog.Info("Idle session evicted", "customer_id", s.CustomerID)
	}
	return len(evicted)
}

// Sweep calls EvictIdle every interval until ctx is done.
func (m *Manager) Sweep(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(idle); n > 0 {
				slog.Debug("Session sweep finished", "evicted", n, "live", m.Len())
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
