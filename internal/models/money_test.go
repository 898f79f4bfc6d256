package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"35", 3500, false},
		{"35.00", 3500, false},
		{"35.5", 3550, false},
		{"19.99", 1999, false},
		{".5", 50, false},
		{"-1.20", -120, false},
		{"0", 0, false},
		{"1.234", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1.-5", 0, true},
		{"1e3", 0, true},
		{"--5", 0, true},
		{"-+5", 0, true},
		{"+-5", 0, true},
		{"++5", 0, true},
		{"+5", 500, false},
		{"999999999999999999", 0, true},
		{"-999999999999999999", 0, true},
		{"92233720368547757.99", 9223372036854775799, false},
		{"92233720368547758", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyFormat(t *testing.T) {
	assert.Equal(t, "£26.09", Pence(2609).String())
	assert.Equal(t, "£0.05", Pence(5).String())
	assert.Equal(t, "-£1.20", Pence(-120).String())
	assert.Equal(t, "3.00", Pence(300).Decimal())
}

func TestMoneyJSON(t *testing.T) {
	var plan Plan
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Full Weekly","price":35.00,"mealsPerWeek":6}`), &plan))
	assert.Equal(t, Pence(3500), plan.Price)

	var item OrderItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"name":"Shake","price":"1.5"}`), &item))
	assert.Equal(t, Pence(150), item.Price)

	out, err := json.Marshal(Breakdown{Plan: 3500, Total: 3799})
	require.NoError(t, err)
	assert.JSONEq(t, `{"plan":35.00,"supplements":0.00,"addons":0.00,"desserts":0.00,"shipping":0.00,"total":37.99}`, string(out))
}

func TestMoneyRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("decimal text parses to exact pence", prop.ForAll(
		func(pounds int64, pence int64) bool {
			m, err := ParseMoney(fmt.Sprintf("%d.%02d", pounds, pence))
			return err == nil && m == Money(pounds*100+pence) && m.Decimal() == fmt.Sprintf("%d.%02d", pounds, pence)
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 99),
	))

	properties.TestingRun(t)
}

func TestDeliveryDayIncludes(t *testing.T) {
	assert.True(t, DeliveryBoth.Includes(Sunday))
	assert.True(t, DeliveryBoth.Includes(Wednesday))
	assert.True(t, DeliverySunday.Includes(Sunday))
	assert.False(t, DeliverySunday.Includes(Wednesday))
	assert.False(t, DeliveryDay("").Includes(Sunday))
	assert.False(t, DeliveryDay("Friday").Valid())
}

func TestMealMacros(t *testing.T) {
	m := MealOption{Calories: "500", Protein: "40g", Carbs: "50g", Fat: "10g", DoubleProtein: "80g", DoubleCalories: "660"}
	assert.Equal(t, Macros{Calories: "500", Protein: "40g", Carbs: "50g", Fat: "10g"}, m.Macros(false))
	assert.Equal(t, Macros{Calories: "660", Protein: "80g", Carbs: "50g", Fat: "10g"}, m.Macros(true))

	plain := MealOption{Protein: "30g"}
	assert.Equal(t, "30g", plain.Macros(true).Protein)
}
