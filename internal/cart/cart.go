// Package cart turns completed drafts into frozen line items and totals them.
package cart

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
)

// ErrIncompleteDraft is returned when a draft without a plan, a delivery
// selection or a full set of meals is added.
var ErrIncompleteDraft = errors.New("draft is incomplete")

// Cart is an ordered list of line items.
type Cart struct {
	items []models.LineItem
	now   func() time.Time
}

// New creates a cart holding items, typically loaded from storage.
func New(items []models.LineItem) *Cart {
	return &Cart{items: slices.Clone(items), now: time.Now}
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []models.LineItem {
	return slices.Clone(c.items)
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// Add snapshots d into a new line item priced at b and appends it.
func (c *Cart) Add(d draft.Draft, b models.Breakdown) (models.LineItem, error) {
	if !d.Complete() {
		return models.LineItem{}, ErrIncompleteDraft
	}
	snap := d.Clone()
	item := models.LineItem{
		ID:           uuid.NewString(),
		Plan:         *snap.Plan,
		DeliveryDays: snap.DeliveryDays,
		Meals:        snap.Meals,
		Addons:       snap.Addons,
		Desserts:     snap.Desserts,
		Breakdown:    b,
		TotalPrice:   b.Total,
		AddedAt:      c.now().UTC(),
	}
	c.items = append(c.items, item)
	return item, nil
}

// Remove deletes the line item with id. It reports whether one was found;
// removing an unknown id is not an error.
func (c *Cart) Remove(id string) bool {
	i := slices.IndexFunc(c.items, func(li models.LineItem) bool { return li.ID == id })
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Totals sums the frozen breakdowns of every line item. Items are never
// re-priced against the current catalog.
func (c *Cart) Totals() models.Breakdown {
	var total models.Breakdown
	for _, li := range c.items {
		total = total.Add(li.Breakdown)
	}
	return total
}

// Fingerprint identifies the cart's exact contents. Line items are frozen and
// their ids are never reused, so two carts with the same ids in the same
// order hold the same boxes.
func Fingerprint(items []models.LineItem) string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(ids, "\n"))).String()
}
