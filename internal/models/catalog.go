package models

import "time"

// Day is a calendar delivery day that owns meal slots and add-ons.
type Day string

const (
	Sunday    Day = "sunday"
	Wednesday Day = "wednesday"
)

// Days lists the delivery days in display order.
var Days = []Day{Sunday, Wednesday}

// DeliveryDay is the customer's delivery selection for a box.
// The zero value means no selection has been made yet.
type DeliveryDay string

const (
	DeliverySunday    DeliveryDay = "Sunday"
	DeliveryWednesday DeliveryDay = "Wednesday"
	// DeliveryBoth splits the box across two deliveries and doubles shipping.
	DeliveryBoth DeliveryDay = "Both"
)

// DeliveryDays lists every selectable delivery option.
var DeliveryDays = []DeliveryDay{DeliverySunday, DeliveryWednesday, DeliveryBoth}

// Valid reports whether d is one of the known delivery options.
func (d DeliveryDay) Valid() bool {
	switch d {
	case DeliverySunday, DeliveryWednesday, DeliveryBoth:
		return true
	}
	return false
}

// Includes reports whether a box delivered on d has a delivery on day.
func (d DeliveryDay) Includes(day Day) bool {
	switch d {
	case DeliveryBoth:
		return day == Sunday || day == Wednesday
	case DeliverySunday:
		return day == Sunday
	case DeliveryWednesday:
		return day == Wednesday
	}
	return false
}

// Plan is a subscription package: a weekly meal count at a fixed price.
type Plan struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Price        Money  `json:"price"`
	MealsPerWeek int    `json:"mealsPerWeek"`
}

// Macros are the display strings shown on a meal card.
type Macros struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// MealOption is a meal that can fill a slot in the box.
type MealOption struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`

	// Double* hold the macros of the double-protein variant, when offered.
	DoubleCalories string `json:"doubleCalories,omitempty"`
	DoubleProtein  string `json:"doubleProtein,omitempty"`
	DoubleCarbs    string `json:"doubleCarbs,omitempty"`
	DoubleFat      string `json:"doubleFat,omitempty"`

	// Supplement is charged on top of the plan price for each slot holding this meal.
	Supplement Money  `json:"supplement"`
	Allergens  string `json:"allergens,omitempty"`
	// Spice is 0-5; 0 means no rating (shown as a mild badge).
	Spice int `json:"spice"`
}

// HasDouble reports whether the meal offers a double-protein variant.
func (m MealOption) HasDouble() bool {
	return m.DoubleProtein != ""
}

// Macros returns the display macros, using the double-protein variant when
// requested and available.
func (m MealOption) Macros(double bool) Macros {
	base := Macros{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
	if !double || !m.HasDouble() {
		return base
	}
	return Macros{
		Calories: fallback(m.DoubleCalories, base.Calories),
		Protein:  m.DoubleProtein,
		Carbs:    fallback(m.DoubleCarbs, base.Carbs),
		Fat:      fallback(m.DoubleFat, base.Fat),
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// OrderItem is an add-on or dessert that is bought by quantity.
type OrderItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Price     Money  `json:"price"`
	Allergens string `json:"allergens,omitempty"`
}

// QuantifiedItem is an OrderItem with a quantity of at least one.
type QuantifiedItem struct {
	Item     OrderItem `json:"item"`
	Quantity int       `json:"quantity"`
}

// Total is the line price of the quantified item.
func (q QuantifiedItem) Total() Money {
	return q.Item.Price.Times(q.Quantity)
}

// DeliveryAvailability carries the operational delivery-day switches.
type DeliveryAvailability struct {
	Sunday    bool `json:"isSundayDeliveryEnabled"`
	Wednesday bool `json:"isWednesdayDeliveryEnabled"`
}

// OrderingStatus reports whether the ordering window is open, and when it
// next opens if it is not.
type OrderingStatus struct {
	Enabled bool      `json:"enabled"`
	OpensAt time.Time `json:"opensAt,omitempty"`
}

// Settings are storefront-wide values published by the backend.
type Settings struct {
	Shipping Money `json:"shippingCost"`
}

// Profile is the signed-in customer's account as returned by the backend.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	RouteID   int    `json:"routeId"`
	Postcode  string `json:"postcode,omitempty"`
}
