package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/models"
)

// fakeBackend serves canned JSON per path and records the last bearer token.
type fakeBackend struct {
	mu        sync.Mutex
	routes    map[string]string
	status    map[string]int
	lastToken atomic.Value
	lastBody  atomic.Value
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		routes: map[string]string{
			"/packages":              `[{"id":1,"name":"Full Weekly","price":35.00,"mealsPerWeek":6}]`,
			"/meals":                 `[{"id":10,"name":"Chicken Rice","supplement":"0"},{"id":11,"name":"Steak","supplement":2.5}]`,
			"/addons":                `[{"id":100,"name":"Protein Shake","price":1.50}]`,
			"/extras":                `[{"id":200,"name":"Brownie","price":"3.00"}]`,
			"/delivery-availability": `{"isSundayDeliveryEnabled":true,"isWednesdayDeliveryEnabled":false}`,
			"/ordering-status":       `{"enabled":true}`,
			"/settings":              `{"shippingCost":4.99}`,
			"/profile":               `{"id":"cust-1","email":"a@example.com","routeId":4}`,
			"/order/place":           `{"orderId":"ord-77"}`,
		},
		status: map[string]int{},
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastToken.Store(r.Header.Get("Authorization"))
	if r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastBody.Store(body)
	}
	f.mu.Lock()
	code, failing := f.status[r.URL.Path]
	body, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if failing {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeBackend) fail(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

func (f *fakeBackend) respond(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = body
}

func setup(t *testing.T) (*fakeBackend, *Client, context.Context) {
	t.Helper()
	fake := newFakeBackend()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	ctx := auth.WithIdentity(context.Background(), "cust-1", "a@example.com", "tok-123")
	return fake, New(server.URL+"/", 5*time.Second), ctx
}

func TestCatalog(t *testing.T) {
	fake, client, ctx := setup(t)

	snap, err := client.Catalog(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", fake.lastToken.Load())
	require.Len(t, snap.Plans, 1)
	assert.Equal(t, models.MustParseMoney("35.00"), snap.Plans[0].Price)
	assert.Equal(t, 6, snap.Plans[0].MealsPerWeek)

	steak, ok := snap.Meal(11)
	require.True(t, ok)
	assert.Equal(t, models.MustParseMoney("2.50"), steak.Supplement)

	assert.True(t, snap.Availability.Sunday)
	assert.False(t, snap.Availability.Wednesday)
	assert.True(t, snap.Status.Enabled)
	assert.Equal(t, models.MustParseMoney("4.99"), snap.Settings.Shipping)

	brownie, ok := snap.Dessert(200)
	require.True(t, ok)
	assert.Equal(t, models.MustParseMoney("3.00"), brownie.Price)
	assert.NoError(t, snap.AddonsErr)
	assert.False(t, snap.FetchedAt.IsZero())

	_, ok = snap.Plan(99)
	assert.False(t, ok)
}

func TestCatalogOptionalSectionFailure(t *testing.T) {
	fake, client, ctx := setup(t)
	fake.fail("/addons", http.StatusBadGateway)

	snap, err := client.Catalog(ctx)
	require.NoError(t, err, "add-on failure must not fail the catalog")

	var statusErr *StatusError
	require.ErrorAs(t, snap.AddonsErr, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Empty(t, snap.Addons)
	assert.Len(t, snap.Plans, 1)
}

func TestCatalogRequiredSectionFailure(t *testing.T) {
	fake, client, ctx := setup(t)
	fake.fail("/packages", http.StatusServiceUnavailable)

	_, err := client.Catalog(ctx)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Contains(t, err.Error(), "packages")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, client, ctx := setup(t)
			fake.fail("/profile", tt.status)

			_, err := client.Profile(ctx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProfile(t *testing.T) {
	_, client, ctx := setup(t)

	p, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Profile{ID: "cust-1", Email: "a@example.com", RouteID: 4}, p)
}

func TestPlaceOrder(t *testing.T) {
	fake, client, ctx := setup(t)

	payload := cart.OrderPayload{
		Boxes: []cart.BoxPayload{{PlanID: 1, DeliveryDays: models.DeliverySunday}},
		Total: models.MustParseMoney("42.99"),
	}
	id, err := client.PlaceOrder(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "ord-77", id)

	body, _ := fake.lastBody.Load().(map[string]any)
	require.NotNil(t, body)
	assert.Equal(t, 42.99, body["total"])

	fake.respond("/order/place", `{}`)
	_, err = client.PlaceOrder(ctx, payload)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}
