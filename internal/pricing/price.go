package pricing

import (
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
)

// Pricer computes price breakdowns in pence.
type Pricer struct {
	// DoubleProteinSurcharge is added for each slot with double protein on.
	// Zero keeps double protein priced by the meal's own supplement only.
	DoubleProteinSurcharge models.Money
}

// Supplements sums the meal supplements over all filled slots.
func (p Pricer) Supplements(d draft.Draft) models.Money {
	var total models.Money
	for _, day := range models.Days {
		for _, s := range d.Slots(day) {
			if s == nil {
				continue
			}
			total += s.Meal.Supplement
			if s.DoubleProtein {
				total += p.DoubleProteinSurcharge
			}
		}
	}
	return total
}

// ItemsTotal sums quantity × unit price.
func ItemsTotal(items []models.QuantifiedItem) models.Money {
	var total models.Money
	for _, q := range items {
		total += q.Total()
	}
	return total
}

// Quote prices a single draft. Shipping is the base rate; the surcharge for
// split delivery is applied when the box becomes a cart line.
func (p Pricer) Quote(d draft.Draft, shippingBase models.Money) models.Breakdown {
	b := models.Breakdown{
		Supplements: p.Supplements(d),
		Addons:      ItemsTotal(d.Addons.Sunday) + ItemsTotal(d.Addons.Wednesday),
		Desserts:    ItemsTotal(d.Desserts),
		Shipping:    shippingBase,
	}
	if d.Plan != nil {
		b.Plan = d.Plan.Price
	}
	b.Total = b.Sum()
	return b
}

// LineShipping is the shipping charged for one cart line: two deliveries
// cost twice the base rate.
func LineShipping(days models.DeliveryDay, shippingBase models.Money) models.Money {
	if days == models.DeliveryBoth {
		return shippingBase.Times(2)
	}
	return shippingBase
}

// LineBreakdown prices a draft as a cart line.
func (p Pricer) LineBreakdown(d draft.Draft, shippingBase models.Money) models.Breakdown {
	b := p.Quote(d, shippingBase)
	b.Shipping = LineShipping(d.DeliveryDays, shippingBase)
	b.Total = b.Sum()
	return b
}
