package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/storage"
)

func TestCartIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	items := []models.LineItem{{ID: "a", Desserts: []models.QuantifiedItem{{Item: models.OrderItem{ID: 1}, Quantity: 1}}}}
	require.NoError(t, s.SaveCart(ctx, "c1", items))

	// Mutating the caller's slice must not reach the store.
	items[0].Desserts[0].Quantity = 99

	got, err := s.LoadCart(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Desserts[0].Quantity)

	other, err := s.LoadCart(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCheckouts(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.RecordCheckout(ctx, &storage.Checkout{SessionID: "cs_1", OrderID: "o1"}))
	assert.Error(t, s.RecordCheckout(ctx, &storage.Checkout{SessionID: "cs_1"}))

	require.NoError(t, s.MarkCheckoutPaid(ctx, "cs_1"))
	c, err := s.GetCheckout(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, storage.CheckoutPaid, c.Status)

	_, err = s.GetCheckout(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPendingCheckout(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.PendingCheckout(ctx, "c1", "cart-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.RecordCheckout(ctx, &storage.Checkout{SessionID: "cs_1", CustomerID: "c1", CartKey: "cart-a", CreatedAt: 100}))
	require.NoError(t, s.RecordCheckout(ctx, &storage.Checkout{SessionID: "cs_2", CustomerID: "c1", CartKey: "cart-a", CreatedAt: 200}))
	require.NoError(t, s.RecordCheckout(ctx, &storage.Checkout{SessionID: "cs_3", CustomerID: "c2", CartKey: "cart-a", CreatedAt: 300}))

	got, err := s.PendingCheckout(ctx, "c1", "cart-a")
	require.NoError(t, err)
	assert.Equal(t, "cs_2", got.SessionID)

	require.NoError(t, s.MarkCheckoutPaid(ctx, "cs_2"))
	got, err = s.PendingCheckout(ctx, "c1", "cart-a")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.SessionID)

	_, err = s.PendingCheckout(ctx, "c1", "cart-b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
