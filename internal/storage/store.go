// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/mealbox/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CartStore persists each customer's cart as a single blob.
// This abstraction allows swapping storage backends (SQLite, Redis, memory)
// without changing the session layer.
type CartStore interface {
	// LoadCart returns the saved line items for key.
	// A customer with no saved cart gets an empty slice and no error.
	LoadCart(ctx context.Context, key string) ([]models.LineItem, error)

	// SaveCart replaces the saved line items for key.
	SaveCart(ctx context.Context, key string, items []models.LineItem) error

	// DeleteCart removes the saved cart for key. Deleting a missing cart is not an error.
	DeleteCart(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// CheckoutStatus is the state of a recorded checkout.
type CheckoutStatus string

const (
	CheckoutPending CheckoutStatus = "pending"
	CheckoutPaid    CheckoutStatus = "paid"
)

// Checkout links a hosted payment session to the placed order.
type Checkout struct {
	// SessionID is the payment gateway's checkout session id.
	SessionID  string
	OrderID    string
	CustomerID string
	Total      models.Money
	Status     CheckoutStatus
	// CartKey fingerprints the cart contents that were ordered.
	CartKey string
	// RedirectURL is the hosted payment page for the session.
	RedirectURL string
	// CreatedAt is the Unix timestamp when the checkout was started.
	CreatedAt int64
}

// CheckoutLog records checkouts for later confirmation lookups.
type CheckoutLog interface {
	RecordCheckout(ctx context.Context, c *Checkout) error

	// GetCheckout returns ErrNotFound for an unknown session id.
	GetCheckout(ctx context.Context, sessionID string) (*Checkout, error)

	// MarkCheckoutPaid flips a checkout to paid. It returns ErrNotFound for an unknown session id.
	MarkCheckoutPaid(ctx context.Context, sessionID string) error

	// PendingCheckout returns the newest pending checkout of customerID for
	// the cart identified by cartKey, or ErrNotFound.
	PendingCheckout(ctx context.Context, customerID, cartKey string) (*Checkout, error)
}
