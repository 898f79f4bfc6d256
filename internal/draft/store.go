package draft

import (
	"sync"

	"github.com/mmynk/mealbox/internal/models"
)

// Store owns the current Draft of one customer session.
//
// Mutations are applied synchronously and every subscriber sees the new
// value before the mutating call returns.
type Store struct {
	mu     sync.Mutex
	draft  Draft
	nextID int
	subs   map[int]func(Draft)
}

// NewStore creates a store holding the empty draft.
func NewStore() *Store {
	return &Store{draft: New(), subs: make(map[int]func(Draft))}
}

// Snapshot returns a copy of the current draft.
func (s *Store) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Subscribe registers fn to be called with every new draft.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Draft)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// apply runs fn on the current draft and, if it succeeds, stores the result
// and notifies subscribers outside the lock.
func (s *Store) apply(fn func(Draft) (Draft, error)) (Draft, error) {
	s.mu.Lock()
	next, err := fn(s.draft)
	if err != nil {
		s.mu.Unlock()
		return s.Snapshot(), err
	}
	s.draft = next
	subs := make([]func(Draft), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next.Clone(), nil
}

// SetPlan applies Draft.SetPlan. It never fails.
func (s *Store) SetPlan(plan models.Plan) Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.SetPlan(plan), nil })
	return d
}

// SetDeliveryDays applies Draft.SetDeliveryDays; on error the draft is unchanged
// and subscribers are not called.
func (s *Store) SetDeliveryDays(days models.DeliveryDay) (Draft, error) {
	return s.apply(func(d Draft) (Draft, error) { return d.SetDeliveryDays(days) })
}

// ClearDeliveryDays drops the delivery selection and its meal slots.
func (s *Store) ClearDeliveryDays() Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.ClearDeliveryDays(), nil })
	return d
}

// SelectMeal fills one slot. Out-of-range slots are left alone.
func (s *Store) SelectMeal(day models.Day, index int, meal models.MealOption) Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.SelectMeal(day, index, meal), nil })
	return d
}

// ClearMeal empties one slot.
func (s *Store) ClearMeal(day models.Day, index int) Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.ClearMeal(day, index), nil })
	return d
}

// SetDoubleProtein toggles double protein on a filled slot whose meal offers it.
func (s *Store) SetDoubleProtein(day models.Day, index int, on bool) Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.SetDoubleProtein(day, index, on), nil })
	return d
}

// UpdateAddonQuantity applies Draft.UpdateAddonQuantity.
func (s *Store) UpdateAddonQuantity(item models.OrderItem, quantity int, day models.Day) (Draft, error) {
	return s.apply(func(d Draft) (Draft, error) { return d.UpdateAddonQuantity(item, quantity, day) })
}

// UpdateDessertQuantity applies Draft.UpdateDessertQuantity.
func (s *Store) UpdateDessertQuantity(item models.OrderItem, quantity int) (Draft, error) {
	return s.apply(func(d Draft) (Draft, error) { return d.UpdateDessertQuantity(item, quantity) })
}

// Replace swaps in a draft computed elsewhere, such as a reconciled one.
func (s *Store) Replace(d Draft) Draft {
	out, _ := s.apply(func(Draft) (Draft, error) { return d.Clone(), nil })
	return out
}

// Reset returns the store to the empty draft.
func (s *Store) Reset() Draft {
	d, _ := s.apply(func(d Draft) (Draft, error) { return d.Reset(), nil })
	return d
}
