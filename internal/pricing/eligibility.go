// Package pricing computes what a customer may choose and what it costs.
//
// Everything here is a pure function of the draft, the catalog and the
// customer's profile; nothing is stored.
package pricing

import (
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
)

// DayOption is a delivery choice with its current availability.
type DayOption struct {
	Day       models.DeliveryDay `json:"day"`
	Label     string             `json:"label"`
	Available bool               `json:"available"`
}

// Eligible reports whether day can be selected under avail for plan.
// Both needs both switches on and, once a plan is chosen, an even meal count.
func Eligible(day models.DeliveryDay, avail models.DeliveryAvailability, plan *models.Plan) bool {
	switch day {
	case models.DeliverySunday:
		return avail.Sunday
	case models.DeliveryWednesday:
		return avail.Wednesday
	case models.DeliveryBoth:
		return avail.Sunday && avail.Wednesday && draft.CanSplit(plan)
	}
	return false
}

// AvailableDays lists every delivery option with its availability and the
// label the customer's route should see.
func AvailableDays(avail models.DeliveryAvailability, plan *models.Plan, labels Labeler, routeID int) []DayOption {
	opts := make([]DayOption, 0, len(models.DeliveryDays))
	for _, day := range models.DeliveryDays {
		opts = append(opts, DayOption{
			Day:       day,
			Label:     labels.Label(day, routeID),
			Available: Eligible(day, avail, plan),
		})
	}
	return opts
}

// Reconcile clears a delivery selection that is no longer eligible, forcing
// the customer to choose again. It reports whether the draft changed.
func Reconcile(d draft.Draft, avail models.DeliveryAvailability) (draft.Draft, bool) {
	if d.DeliveryDays == "" || Eligible(d.DeliveryDays, avail, d.Plan) {
		return d, false
	}
	return d.ClearDeliveryDays(), true
}
