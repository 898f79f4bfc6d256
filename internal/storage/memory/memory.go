// Package memory provides an in-process implementation of the storage interfaces.
// Data does not survive a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/storage"
)

var (
	_ storage.CartStore   = (*Store)(nil)
	_ storage.CheckoutLog = (*Store)(nil)
)

// Store keeps carts as encoded blobs so callers never share memory with it.
type Store struct {
	mu        sync.Mutex
	carts     map[string][]byte
	checkouts map[string]storage.Checkout
}

// New creates an empty store.
func New() *Store {
	return &Store{
		carts:     make(map[string][]byte),
		checkouts: make(map[string]storage.Checkout),
	}
}

func (s *Store) LoadCart(_ context.Context, key string) ([]models.LineItem, error) {
	s.mu.Lock()
	blob, ok := s.carts[key]
	s.mu.Unlock()
	if !ok {
		return []models.LineItem{}, nil
	}

	var items []models.LineItem
	if err := json.Unmarshal(blob, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

func (s *Store) SaveCart(ctx context.Context, key string, items []models.LineItem) error {
	if len(items) == 0 {
		return s.DeleteCart(ctx, key)
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	s.mu.Lock()
	s.carts[key] = blob
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteCart(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.carts, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) RecordCheckout(_ context.Context, c *storage.Checkout) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	if c.Status == "" {
		c.Status = storage.CheckoutPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.checkouts[c.SessionID]; exists {
		return fmt.Errorf("checkout %s already recorded", c.SessionID)
	}
	s.checkouts[c.SessionID] = *c
	return nil
}

func (s *Store) GetCheckout(_ context.Context, sessionID string) (*storage.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkouts[sessionID]
	if !ok {
		return nil, fmt.Errorf("checkout %s: %w", sessionID, storage.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) MarkCheckoutPaid(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkouts[sessionID]
	if !ok {
		return fmt.Errorf("checkout %s: %w", sessionID, storage.ErrNotFound)
	}
	c.Status = storage.CheckoutPaid
	s.checkouts[sessionID] = c
	return nil
}

func (s *Store) PendingCheckout(_ context.Context, customerID, cartKey string) (*storage.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *storage.Checkout
	for _, c := range s.checkouts {
		if c.CustomerID != customerID || c.CartKey != cartKey || c.Status != storage.CheckoutPending {
			continue
		}
		if found == nil || c.CreatedAt > found.CreatedAt {
			found = &c
		}
	}
	if found == nil {
		return nil, fmt.Errorf("pending checkout for %s: %w", customerID, storage.ErrNotFound)
	}
	return found, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
