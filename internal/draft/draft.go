// Package draft holds the in-progress box a customer is building.
//
// A Draft is a value. Every mutation returns a new Draft whose slot layout
// and day-dependent collections already satisfy the sizing and clearing
// rules, so callers never have to patch invariants after the fact.
package draft

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mmynk/mealbox/internal/models"
)

var (
	ErrInvalidDeliveryDay  = errors.New("invalid delivery day")
	ErrUnevenSplit         = errors.New("plan meal count cannot be split across two deliveries")
	ErrNegativeQuantity    = errors.New("quantity must not be negative")
	ErrInvalidDay          = errors.New("invalid day")
	ErrDessertsUnavailable = errors.New("desserts require a Wednesday delivery")
	ErrAddonDayUnavailable = errors.New("add-ons can only be added to a delivery day of the box")
)

// Draft is the box configuration built up across the wizard steps.
type Draft struct {
	Plan         *models.Plan            `json:"plan"`
	DeliveryDays models.DeliveryDay      `json:"deliveryDays"`
	Meals        models.DayMeals         `json:"meals"`
	Addons       models.DayAddons        `json:"addons"`
	Desserts     []models.QuantifiedItem `json:"desserts"`
}

// New returns the empty draft.
func New() Draft {
	return Draft{}
}

// SlotCount returns how many meal slots day gets for a plan delivered on days.
//
// A day outside the delivery selection gets none, a single-day delivery gets
// the whole weekly count, and a split delivery gets half on each day.
func SlotCount(plan *models.Plan, days models.DeliveryDay, day models.Day) int {
	if plan == nil || !days.Includes(day) {
		return 0
	}
	if days == models.DeliveryBoth {
		return plan.MealsPerWeek / 2
	}
	return plan.MealsPerWeek
}

// CanSplit reports whether plan can be delivered across both days.
func CanSplit(plan *models.Plan) bool {
	return plan == nil || plan.MealsPerWeek%2 == 0
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	out := Draft{
		DeliveryDays: d.DeliveryDays,
		Meals: models.DayMeals{
			Sunday:    cloneSlots(d.Meals.Sunday),
			Wednesday: cloneSlots(d.Meals.Wednesday),
		},
		Addons: models.DayAddons{
			Sunday:    slices.Clone(d.Addons.Sunday),
			Wednesday: slices.Clone(d.Addons.Wednesday),
		},
		Desserts: slices.Clone(d.Desserts),
	}
	if d.Plan != nil {
		p := *d.Plan
		out.Plan = &p
	}
	return out
}

func cloneSlots(in []*models.MealSelection) []*models.MealSelection {
	if in == nil {
		return nil
	}
	out := make([]*models.MealSelection, len(in))
	for i, s := range in {
		if s != nil {
			c := *s
			out[i] = &c
		}
	}
	return out
}

// Slots returns the meal slots for day.
func (d Draft) Slots(day models.Day) []*models.MealSelection {
	switch day {
	case models.Sunday:
		return d.Meals.Sunday
	case models.Wednesday:
		return d.Meals.Wednesday
	}
	return nil
}

// AddonsFor returns the add-ons chosen for day.
func (d Draft) AddonsFor(day models.Day) []models.QuantifiedItem {
	switch day {
	case models.Sunday:
		return d.Addons.Sunday
	case models.Wednesday:
		return d.Addons.Wednesday
	}
	return nil
}

// resize replaces both slot arrays with empty slots sized for the current
// plan and delivery selection. Previous meal choices are dropped.
func (d Draft) resize() Draft {
	d.Meals = models.DayMeals{
		Sunday:    make([]*models.MealSelection, SlotCount(d.Plan, d.DeliveryDays, models.Sunday)),
		Wednesday: make([]*models.MealSelection, SlotCount(d.Plan, d.DeliveryDays, models.Wednesday)),
	}
	return d
}

// SetPlan selects a plan and resets the meal slots.
// Choosing a plan with an odd meal count while delivering on both days
// clears the delivery selection, since the meals cannot be split.
func (d Draft) SetPlan(plan models.Plan) Draft {
	d = d.Clone()
	d.Plan = &plan
	if d.DeliveryDays == models.DeliveryBoth && !CanSplit(d.Plan) {
		d.DeliveryDays = ""
	}
	return d.resize()
}

// SetDeliveryDays selects the delivery option, clears whatever the new
// selection no longer supports and resets the meal slots.
func (d Draft) SetDeliveryDays(days models.DeliveryDay) (Draft, error) {
	if !days.Valid() {
		return d, fmt.Errorf("%w: %q", ErrInvalidDeliveryDay, days)
	}
	if days == models.DeliveryBoth && !CanSplit(d.Plan) {
		return d, fmt.Errorf("%w: %d meals", ErrUnevenSplit, d.Plan.MealsPerWeek)
	}

	d = d.Clone()
	d.DeliveryDays = days
	if !days.Includes(models.Wednesday) {
		d.Desserts = nil
		d.Addons.Wednesday = nil
	}
	if !days.Includes(models.Sunday) {
		d.Addons.Sunday = nil
	}
	return d.resize(), nil
}

// ClearDeliveryDays drops the delivery selection and every meal choice.
func (d Draft) ClearDeliveryDays() Draft {
	d = d.Clone()
	d.DeliveryDays = ""
	d.Desserts = nil
	d.Addons = models.DayAddons{}
	return d.resize()
}

// SelectMeal puts meal into slot index of day. An index outside the current
// layout is ignored, since it can only come from a stale view of the draft.
func (d Draft) SelectMeal(day models.Day, index int, meal models.MealOption) Draft {
	slots := d.Slots(day)
	if index < 0 || index >= len(slots) {
		return d
	}
	d = d.Clone()
	d.Slots(day)[index] = &models.MealSelection{Meal: meal}
	return d
}

// ClearMeal empties slot index of day. Out-of-range indexes are ignored.
func (d Draft) ClearMeal(day models.Day, index int) Draft {
	slots := d.Slots(day)
	if index < 0 || index >= len(slots) || slots[index] == nil {
		return d
	}
	d = d.Clone()
	d.Slots(day)[index] = nil
	return d
}

// SetDoubleProtein switches a filled slot to or from the double-protein
// variant. Empty or out-of-range slots are ignored.
func (d Draft) SetDoubleProtein(day models.Day, index int, on bool) Draft {
	slots := d.Slots(day)
	if index < 0 || index >= len(slots) || slots[index] == nil {
		return d
	}
	if on && !slots[index].Meal.HasDouble() {
		return d
	}
	d = d.Clone()
	d.Slots(day)[index].DoubleProtein = on
	return d
}

// UpdateAddonQuantity sets the quantity of an add-on on day. A zero
// quantity removes the entry; removing an absent entry is a no-op.
// Only days in the delivery selection can hold add-ons.
func (d Draft) UpdateAddonQuantity(item models.OrderItem, quantity int, day models.Day) (Draft, error) {
	if quantity < 0 {
		return d, ErrNegativeQuantity
	}
	if day != models.Sunday && day != models.Wednesday {
		return d, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	if quantity > 0 && !d.DeliveryDays.Includes(day) {
		return d, fmt.Errorf("%w: %s", ErrAddonDayUnavailable, day)
	}

	d = d.Clone()
	switch day {
	case models.Sunday:
		d.Addons.Sunday = setQuantity(d.Addons.Sunday, item, quantity)
	case models.Wednesday:
		d.Addons.Wednesday = setQuantity(d.Addons.Wednesday, item, quantity)
	}
	return d, nil
}

// UpdateDessertQuantity sets the quantity of a dessert. Desserts only ship
// with a Wednesday delivery.
func (d Draft) UpdateDessertQuantity(item models.OrderItem, quantity int) (Draft, error) {
	if quantity < 0 {
		return d, ErrNegativeQuantity
	}
	if quantity > 0 && !d.DeliveryDays.Includes(models.Wednesday) {
		return d, ErrDessertsUnavailable
	}

	d = d.Clone()
	d.Desserts = setQuantity(d.Desserts, item, quantity)
	return d, nil
}

// Quantity returns how many of item are in items.
func Quantity(items []models.QuantifiedItem, itemID int) int {
	for _, q := range items {
		if q.Item.ID == itemID {
			return q.Quantity
		}
	}
	return 0
}

// setQuantity upserts or removes item. The slice is owned by the caller.
func setQuantity(items []models.QuantifiedItem, item models.OrderItem, quantity int) []models.QuantifiedItem {
	i := slices.IndexFunc(items, func(q models.QuantifiedItem) bool { return q.Item.ID == item.ID })
	switch {
	case i >= 0 && quantity > 0:
		items[i].Quantity = quantity
	case i >= 0:
		items = slices.Delete(items, i, i+1)
	case quantity > 0:
		items = append(items, models.QuantifiedItem{Item: item, Quantity: quantity})
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// Reset returns the empty draft.
func (d Draft) Reset() Draft {
	return New()
}

// MealsComplete reports whether every meal slot is filled.
// A draft with no slots at all is not complete.
func (d Draft) MealsComplete() bool {
	total := len(d.Meals.Sunday) + len(d.Meals.Wednesday)
	if total == 0 {
		return false
	}
	for _, s := range d.Meals.Sunday {
		if s == nil {
			return false
		}
	}
	for _, s := range d.Meals.Wednesday {
		if s == nil {
			return false
		}
	}
	return true
}

// Complete reports whether the draft can be committed to the cart.
func (d Draft) Complete() bool {
	return d.Plan != nil && d.DeliveryDays.Valid() && d.MealsComplete()
}
