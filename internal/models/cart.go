package models

import "time"

// Breakdown is a price split into its independent components.
type Breakdown struct {
	Plan        Money `json:"plan"`
	Supplements Money `json:"supplements"`
	Addons      Money `json:"addons"`
	Desserts    Money `json:"desserts"`
	Shipping    Money `json:"shipping"`
	Total       Money `json:"total"`
}

// Sum returns the total of all components, ignoring the Total field.
func (b Breakdown) Sum() Money {
	return b.Plan + b.Supplements + b.Addons + b.Desserts + b.Shipping
}

// Add returns the component-wise sum of b and o.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		Plan:        b.Plan + o.Plan,
		Supplements: b.Supplements + o.Supplements,
		Addons:      b.Addons + o.Addons,
		Desserts:    b.Desserts + o.Desserts,
		Shipping:    b.Shipping + o.Shipping,
		Total:       b.Total + o.Total,
	}
}

// MealSelection is a filled meal slot.
type MealSelection struct {
	Meal          MealOption `json:"meal"`
	DoubleProtein bool       `json:"doubleProtein,omitempty"`
}

// DayMeals holds per-day meal slots. A nil entry is an unfilled slot.
type DayMeals struct {
	Sunday    []*MealSelection `json:"sunday"`
	Wednesday []*MealSelection `json:"wednesday"`
}

// DayAddons holds per-day add-on quantities.
type DayAddons struct {
	Sunday    []QuantifiedItem `json:"sunday"`
	Wednesday []QuantifiedItem `json:"wednesday"`
}

// LineItem is an immutable snapshot of a completed box in the cart.
//
// The breakdown is frozen when the box is added, so later catalog price
// changes never alter what the customer was shown.
type LineItem struct {
	ID           string           `json:"id"`
	Plan         Plan             `json:"plan"`
	DeliveryDays DeliveryDay      `json:"deliveryDays"`
	Meals        DayMeals         `json:"meals"`
	Addons       DayAddons        `json:"addons"`
	Desserts     []QuantifiedItem `json:"desserts"`
	Breakdown    Breakdown        `json:"breakdown"`
	TotalPrice   Money            `json:"totalPrice"`
	AddedAt      time.Time        `json:"addedAt"`
}
