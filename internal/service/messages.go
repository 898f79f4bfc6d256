package service

import (
	"time"

	"github.com/mmynk/mealbox/internal/address"
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/pricing"
	"github.com/mmynk/mealbox/internal/wizard"
)

// Empty is the request of procedures that take no arguments.
type Empty struct{}

// BoxState is the view of the box being built, returned by every BoxService
// procedure that can change it.
type BoxState struct {
	Step       string `json:"step"`
	StepNumber int    `json:"stepNumber"`
	CanAdvance bool   `json:"canAdvance"`
	// Version increases with every draft change.
	Version uint64 `json:"version"`

	Draft           draft.Draft         `json:"draft"`
	Quote           models.Breakdown    `json:"quote"`
	DeliveryOptions []pricing.DayOption `json:"deliveryOptions"`
	DayLabels       DayLabels           `json:"dayLabels"`
	CatalogLoaded   bool                `json:"catalogLoaded"`
	// Notice explains a change the customer did not ask for.
	Notice string `json:"notice,omitempty"`
}

// DayLabels are the slot headings for the customer's route.
type DayLabels struct {
	Sunday    string `json:"sunday"`
	Wednesday string `json:"wednesday"`
}

type EntryResponse struct {
	View           wizard.View `json:"view"`
	OpensAt        *time.Time  `json:"opensAt,omitempty"`
	OpensInSeconds int64       `json:"opensInSeconds,omitempty"`
}

type CatalogResponse struct {
	Plans    []models.Plan       `json:"plans"`
	Meals    []models.MealOption `json:"meals"`
	Addons   []models.OrderItem  `json:"addons"`
	Desserts []models.OrderItem  `json:"desserts"`
	// AddonsError and DessertsError are set when that section failed to
	// load; the first two steps still work.
	AddonsError   string   `json:"addonsError,omitempty"`
	DessertsError string   `json:"dessertsError,omitempty"`
	State         BoxState `json:"state"`
}

type SetPlanRequest struct {
	PlanID int `json:"planId"`
}

type SetDeliveryDaysRequest struct {
	DeliveryDays models.DeliveryDay `json:"deliveryDays"`
}

// SelectMealRequest fills a slot. A zero MealID empties it.
type SelectMealRequest struct {
	Day    models.Day `json:"day"`
	Index  int        `json:"index"`
	MealID int        `json:"mealId"`
}

type SetDoubleProteinRequest struct {
	Day   models.Day `json:"day"`
	Index int        `json:"index"`
	On    bool       `json:"on"`
}

// UpdateAddonRequest sets an add-on either to an absolute Quantity or by
// Delta from the current quantity. Exactly one must be given.
type UpdateAddonRequest struct {
	ItemID   int        `json:"itemId"`
	Day      models.Day `json:"day"`
	Quantity *int       `json:"quantity,omitempty"`
	Delta    *int       `json:"delta,omitempty"`
}

type UpdateDessertRequest struct {
	ItemID   int  `json:"itemId"`
	Quantity *int `json:"quantity,omitempty"`
	Delta    *int `json:"delta,omitempty"`
}

type CartResponse struct {
	Items  []models.LineItem `json:"items"`
	Totals models.Breakdown  `json:"totals"`
}

type AddToCartResponse struct {
	Item models.LineItem `json:"item"`
	Cart CartResponse    `json:"cart"`
	// State is the reset wizard, ready for the next box.
	State BoxState `json:"state"`
}

type RemoveFromCartRequest struct {
	ID string `json:"id"`
}

type RemoveFromCartResponse struct {
	Removed bool         `json:"removed"`
	Cart    CartResponse `json:"cart"`
}

type CheckoutResponse struct {
	OrderID     string       `json:"orderId"`
	SessionID   string       `json:"sessionId"`
	RedirectURL string       `json:"redirectUrl"`
	Total       models.Money `json:"total"`
}

type ConfirmCheckoutRequest struct {
	SessionID string `json:"sessionId"`
}

type ConfirmCheckoutResponse struct {
	OrderID string `json:"orderId"`
	Paid    bool   `json:"paid"`
	Status  string `json:"status"`
}

type ProfileResponse struct {
	Profile models.Profile `json:"profile"`
	// Remapped is true for routes whose deliveries arrive Monday/Thursday.
	Remapped bool `json:"remapped"`
}

type SuggestAddressRequest struct {
	Query string `json:"query"`
}

type SuggestAddressResponse struct {
	Suggestions []address.Suggestion `json:"suggestions"`
}
