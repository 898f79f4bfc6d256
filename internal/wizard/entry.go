package wizard

import (
	"time"

	"github.com/mmynk/mealbox/internal/models"
)

// View is the screen shown at the order entry point.
type View string

const (
	ViewWizard              View = "wizard"
	ViewCountdown           View = "countdown"
	ViewAccountNotActivated View = "account_not_activated"
)

// Entry is the gate decision for a customer.
type Entry struct {
	View View `json:"view"`
	// OpensIn is the time left until ordering reopens; set for ViewCountdown.
	OpensIn time.Duration `json:"opensIn,omitempty"`
	OpensAt time.Time     `json:"opensAt,omitempty"`
}

// Gate decides whether a customer may start building a box.
type Gate struct {
	restricted map[int]struct{}
}

// NewGate creates a gate that blocks the given route ids.
func NewGate(restrictedRoutes []int) Gate {
	set := make(map[int]struct{}, len(restrictedRoutes))
	for _, id := range restrictedRoutes {
		set[id] = struct{}{}
	}
	return Gate{restricted: set}
}

// Decide picks the entry view. A closed ordering window wins over
// everything else; then restricted routes are refused.
func (g Gate) Decide(profile models.Profile, status models.OrderingStatus, now time.Time) Entry {
	if !status.Enabled {
		e := Entry{View: ViewCountdown, OpensAt: status.OpensAt}
		if !status.OpensAt.IsZero() && status.OpensAt.After(now) {
			e.OpensIn = status.OpensAt.Sub(now).Truncate(time.Second)
		}
		return e
	}
	if _, ok := g.restricted[profile.RouteID]; ok {
		return Entry{View: ViewAccountNotActivated}
	}
	return Entry{View: ViewWizard}
}
