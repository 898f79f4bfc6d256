package cart

import (
	"sort"

	"github.com/mmynk/mealbox/internal/models"
)

// OrderPayload is the order-placement request sent to the backend.
type OrderPayload struct {
	Boxes  []BoxPayload  `json:"boxes"`
	Extras []ItemPayload `json:"extras"`
	Total  models.Money  `json:"total"`
}

// BoxPayload describes one box of the order.
type BoxPayload struct {
	PlanID       int                `json:"planId"`
	DeliveryDays models.DeliveryDay `json:"deliveryDays"`
	Sunday       DayPayload         `json:"sunday"`
	Wednesday    DayPayload         `json:"wednesday"`
}

// DayPayload lists a delivery day's meals and add-ons.
type DayPayload struct {
	Meals  []MealPayload `json:"meals"`
	Addons []ItemPayload `json:"addons"`
}

// MealPayload is one filled slot.
type MealPayload struct {
	MealID        int  `json:"mealId"`
	DoubleProtein bool `json:"doubleProtein,omitempty"`
}

// ItemPayload is an item id with a quantity.
type ItemPayload struct {
	ItemID   int `json:"itemId"`
	Quantity int `json:"quantity"`
}

// BuildOrderPayload converts line items into the placement request.
// Desserts are aggregated across all boxes into a single extras list.
func BuildOrderPayload(items []models.LineItem) OrderPayload {
	p := OrderPayload{Boxes: make([]BoxPayload, 0, len(items))}
	extras := make(map[int]int)

	for _, li := range items {
		p.Boxes = append(p.Boxes, BoxPayload{
			PlanID:       li.Plan.ID,
			DeliveryDays: li.DeliveryDays,
			Sunday:       dayPayload(li.Meals.Sunday, li.Addons.Sunday),
			Wednesday:    dayPayload(li.Meals.Wednesday, li.Addons.Wednesday),
		})
		for _, q := range li.Desserts {
			extras[q.Item.ID] += q.Quantity
		}
		p.Total += li.TotalPrice
	}

	p.Extras = make([]ItemPayload, 0, len(extras))
	for id, qty := range extras {
		p.Extras = append(p.Extras, ItemPayload{ItemID: id, Quantity: qty})
	}
	sort.Slice(p.Extras, func(i, j int) bool { return p.Extras[i].ItemID < p.Extras[j].ItemID })
	return p
}

func dayPayload(slots []*models.MealSelection, addons []models.QuantifiedItem) DayPayload {
	d := DayPayload{
		Meals:  make([]MealPayload, 0, len(slots)),
		Addons: make([]ItemPayload, 0, len(addons)),
	}
	for _, s := range slots {
		if s == nil {
			continue
		}
		d.Meals = append(d.Meals, MealPayload{MealID: s.Meal.ID, DoubleProtein: s.DoubleProtein})
	}
	for _, q := range addons {
		d.Addons = append(d.Addons, ItemPayload{ItemID: q.Item.ID, Quantity: q.Quantity})
	}
	return d
}
