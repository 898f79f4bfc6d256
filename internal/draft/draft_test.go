package draft

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mealbox/internal/models"
)

var (
	fullWeekly = models.Plan{ID: 1, Name: "Full Weekly", Price: models.MustParseMoney("35.00"), MealsPerWeek: 6}
	eightMeals = models.Plan{ID: 2, Name: "Eight", Price: models.MustParseMoney("44.00"), MealsPerWeek: 8}
	fiveMeals  = models.Plan{ID: 3, Name: "Five", Price: models.MustParseMoney("30.00"), MealsPerWeek: 5}

	chicken = models.MealOption{ID: 10, Name: "Chicken Rice", Protein: "40g", DoubleProtein: "80g"}
	beef    = models.MealOption{ID: 11, Name: "Beef Chilli", Supplement: models.MustParseMoney("2.50")}

	shake  = models.OrderItem{ID: 100, Name: "Protein Shake", Price: models.MustParseMoney("1.50")}
	cookie = models.OrderItem{ID: 200, Name: "Cookie", Price: models.MustParseMoney("2.00")}
)

func TestSlotCount(t *testing.T) {
	tests := []struct {
		name          string
		plan          *models.Plan
		days          models.DeliveryDay
		wantSunday    int
		wantWednesday int
	}{
		{"no plan", nil, models.DeliverySunday, 0, 0},
		{"no day", &eightMeals, "", 0, 0},
		{"sunday only", &fullWeekly, models.DeliverySunday, 6, 0},
		{"wednesday only", &fullWeekly, models.DeliveryWednesday, 0, 6},
		{"both splits evenly", &eightMeals, models.DeliveryBoth, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSunday, SlotCount(tt.plan, tt.days, models.Sunday))
			assert.Equal(t, tt.wantWednesday, SlotCount(tt.plan, tt.days, models.Wednesday))
		})
	}
}

func TestSlotLayoutProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("slot arrays follow plan and delivery selection", prop.ForAll(
		func(half int, dayIdx int) bool {
			plan := models.Plan{ID: 1, MealsPerWeek: half * 2}
			days := models.DeliveryDays[dayIdx]

			d, err := New().SetPlan(plan).SetDeliveryDays(days)
			if err != nil {
				return false
			}

			sun, wed := len(d.Meals.Sunday), len(d.Meals.Wednesday)
			switch days {
			case models.DeliverySunday:
				return sun == plan.MealsPerWeek && wed == 0
			case models.DeliveryWednesday:
				return sun == 0 && wed == plan.MealsPerWeek
			default:
				return sun == half && wed == half
			}
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, len(models.DeliveryDays)-1),
	))

	properties.TestingRun(t)
}

func TestSetPlanDiscardsMeals(t *testing.T) {
	d, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)
	d = d.SelectMeal(models.Sunday, 0, chicken)
	require.NotNil(t, d.Meals.Sunday[0])

	d = d.SetPlan(eightMeals)
	assert.Len(t, d.Meals.Sunday, 8)
	for i, s := range d.Meals.Sunday {
		assert.Nil(t, s, "slot %d should be empty after plan change", i)
	}
}

func TestSetPlanOddClearsBoth(t *testing.T) {
	d, err := New().SetPlan(eightMeals).SetDeliveryDays(models.DeliveryBoth)
	require.NoError(t, err)

	d = d.SetPlan(fiveMeals)
	assert.Equal(t, models.DeliveryDay(""), d.DeliveryDays)
	assert.Empty(t, d.Meals.Sunday)
	assert.Empty(t, d.Meals.Wednesday)
}

func TestSetDeliveryDays(t *testing.T) {
	t.Run("rejects unknown value", func(t *testing.T) {
		_, err := New().SetDeliveryDays("Friday")
		assert.ErrorIs(t, err, ErrInvalidDeliveryDay)
	})

	t.Run("rejects both for odd plan", func(t *testing.T) {
		_, err := New().SetPlan(fiveMeals).SetDeliveryDays(models.DeliveryBoth)
		assert.ErrorIs(t, err, ErrUnevenSplit)
	})

	t.Run("sunday clears desserts and wednesday addons", func(t *testing.T) {
		d, err := New().SetPlan(eightMeals).SetDeliveryDays(models.DeliveryBoth)
		require.NoError(t, err)
		d, err = d.UpdateAddonQuantity(shake, 2, models.Wednesday)
		require.NoError(t, err)
		d, err = d.UpdateAddonQuantity(shake, 1, models.Sunday)
		require.NoError(t, err)
		d, err = d.UpdateDessertQuantity(cookie, 3)
		require.NoError(t, err)

		d, err = d.SetDeliveryDays(models.DeliverySunday)
		require.NoError(t, err)
		assert.Empty(t, d.Desserts)
		assert.Empty(t, d.Addons.Wednesday)
		assert.Len(t, d.Addons.Sunday, 1)
	})

	t.Run("wednesday clears sunday addons", func(t *testing.T) {
		d, err := New().SetPlan(eightMeals).SetDeliveryDays(models.DeliveryBoth)
		require.NoError(t, err)
		d, err = d.UpdateAddonQuantity(shake, 1, models.Sunday)
		require.NoError(t, err)

		d, err = d.SetDeliveryDays(models.DeliveryWednesday)
		require.NoError(t, err)
		assert.Empty(t, d.Addons.Sunday)
	})
}

func TestSelectMeal(t *testing.T) {
	d, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)

	t.Run("out of bounds is a no-op", func(t *testing.T) {
		for _, idx := range []int{-1, 6, 99} {
			got := d.SelectMeal(models.Sunday, idx, chicken)
			if diff := cmp.Diff(d, got); diff != "" {
				t.Errorf("SelectMeal(%d) changed draft (-want +got):\n%s", idx, diff)
			}
		}
		got := d.SelectMeal(models.Wednesday, 0, chicken)
		assert.Empty(t, got.Meals.Wednesday)
	})

	t.Run("does not alias the previous value", func(t *testing.T) {
		got := d.SelectMeal(models.Sunday, 2, beef)
		assert.Nil(t, d.Meals.Sunday[2])
		require.NotNil(t, got.Meals.Sunday[2])
		assert.Equal(t, beef.ID, got.Meals.Sunday[2].Meal.ID)
	})

	t.Run("double protein only on meals that offer it", func(t *testing.T) {
		got := d.SelectMeal(models.Sunday, 0, chicken).SelectMeal(models.Sunday, 1, beef)
		got = got.SetDoubleProtein(models.Sunday, 0, true).SetDoubleProtein(models.Sunday, 1, true)
		assert.True(t, got.Meals.Sunday[0].DoubleProtein)
		assert.False(t, got.Meals.Sunday[1].DoubleProtein)

		got = got.SetDoubleProtein(models.Sunday, 3, true)
		assert.Nil(t, got.Meals.Sunday[3])
	})
}

func TestUpdateAddonQuantity(t *testing.T) {
	d, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)

	d, err = d.UpdateAddonQuantity(shake, 2, models.Sunday)
	require.NoError(t, err)
	assert.Equal(t, 2, Quantity(d.Addons.Sunday, shake.ID))

	d, err = d.UpdateAddonQuantity(shake, 5, models.Sunday)
	require.NoError(t, err)
	assert.Len(t, d.Addons.Sunday, 1)
	assert.Equal(t, 5, Quantity(d.Addons.Sunday, shake.ID))

	d, err = d.UpdateAddonQuantity(shake, 0, models.Sunday)
	require.NoError(t, err)
	assert.Empty(t, d.Addons.Sunday)

	again, err := d.UpdateAddonQuantity(shake, 0, models.Sunday)
	require.NoError(t, err)
	if diff := cmp.Diff(d, again); diff != "" {
		t.Errorf("second removal changed draft (-want +got):\n%s", diff)
	}

	_, err = d.UpdateAddonQuantity(shake, -1, models.Sunday)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = d.UpdateAddonQuantity(shake, 1, "friday")
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestUpdateAddonQuantityOffDay(t *testing.T) {
	wed, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliveryWednesday)
	require.NoError(t, err)

	got, err := wed.UpdateAddonQuantity(shake, 2, models.Sunday)
	assert.ErrorIs(t, err, ErrAddonDayUnavailable)
	assert.Empty(t, got.Addons.Sunday)

	// Removing from a day without delivery stays a no-op.
	got, err = wed.UpdateAddonQuantity(shake, 0, models.Sunday)
	require.NoError(t, err)
	assert.Empty(t, got.Addons.Sunday)

	_, err = New().UpdateAddonQuantity(shake, 1, models.Sunday)
	assert.ErrorIs(t, err, ErrAddonDayUnavailable, "no delivery chosen yet")

	sun, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)
	_, err = sun.UpdateAddonQuantity(shake, 1, models.Wednesday)
	assert.ErrorIs(t, err, ErrAddonDayUnavailable)
}

func TestUpdateDessertQuantity(t *testing.T) {
	sunday, err := New().SetPlan(fullWeekly).SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)
	_, err = sunday.UpdateDessertQuantity(cookie, 1)
	assert.ErrorIs(t, err, ErrDessertsUnavailable)

	wed, err := sunday.SetDeliveryDays(models.DeliveryWednesday)
	require.NoError(t, err)
	wed, err = wed.UpdateDessertQuantity(cookie, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, Quantity(wed.Desserts, cookie.ID))

	wed, err = wed.UpdateDessertQuantity(cookie, 0)
	require.NoError(t, err)
	assert.Empty(t, wed.Desserts)
}

func TestMealsComplete(t *testing.T) {
	assert.False(t, New().MealsComplete())

	d, err := New().SetPlan(eightMeals).SetDeliveryDays(models.DeliveryBoth)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		d = d.SelectMeal(models.Sunday, i, chicken)
	}
	assert.False(t, d.MealsComplete())

	for i := 0; i < 4; i++ {
		d = d.SelectMeal(models.Wednesday, i, beef)
	}
	assert.True(t, d.MealsComplete())
	assert.True(t, d.Complete())

	d = d.ClearMeal(models.Wednesday, 3)
	assert.False(t, d.MealsComplete())
}

func TestStore(t *testing.T) {
	s := NewStore()

	var seen []Draft
	cancel := s.Subscribe(func(d Draft) { seen = append(seen, d) })

	s.SetPlan(fullWeekly)
	_, err := s.SetDeliveryDays(models.DeliverySunday)
	require.NoError(t, err)
	s.SelectMeal(models.Sunday, 0, chicken)

	_, err = s.UpdateAddonQuantity(shake, -2, models.Sunday)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	require.Len(t, seen, 3, "failed mutations must not notify")
	assert.Len(t, seen[2].Meals.Sunday, 6)
	assert.NotNil(t, seen[2].Meals.Sunday[0])

	cancel()
	s.Reset()
	assert.Len(t, seen, 3)

	got := s.Snapshot()
	if diff := cmp.Diff(New(), got); diff != "" {
		t.Errorf("Reset() mismatch (-want +got):\n%s", diff)
	}
}
