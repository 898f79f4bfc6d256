package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/mealbox/internal/address"
	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/backend"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/middleware"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/payment"
	"github.com/mmynk/mealbox/internal/pricing"
	"github.com/mmynk/mealbox/internal/rpc"
	"github.com/mmynk/mealbox/internal/session"
	"github.com/mmynk/mealbox/internal/storage/memory"
	"github.com/mmynk/mealbox/internal/wizard"
)

var (
	fullWeekly = models.Plan{ID: 1, Name: "Full Weekly", Price: models.MustParseMoney("35.00"), MealsPerWeek: 6}
	eightMeals = models.Plan{ID: 2, Name: "Eight", Price: models.MustParseMoney("19.99"), MealsPerWeek: 8}
	fiveMeals  = models.Plan{ID: 3, Name: "Five", Price: models.MustParseMoney("30.00"), MealsPerWeek: 5}

	chicken = models.MealOption{ID: 10, Name: "Chicken Rice", Protein: "40g", DoubleProtein: "80g"}
	steak   = models.MealOption{ID: 11, Name: "Steak", Supplement: models.MustParseMoney("2.50")}

	shake   = models.OrderItem{ID: 100, Name: "Protein Shake", Price: models.MustParseMoney("1.50")}
	brownie = models.OrderItem{ID: 200, Name: "Brownie", Price: models.MustParseMoney("3.00")}

	shippingBase = models.MustParseMoney("4.99")
	fixedNow     = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

// fakeBackend serves a fixed catalog. Setting err makes every call fail.
type fakeBackend struct {
	mu      sync.Mutex
	snap    backend.Snapshot
	profile models.Profile
	err     error
	orders  []cart.OrderPayload
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		snap: backend.Snapshot{
			Plans:        []models.Plan{fullWeekly, eightMeals, fiveMeals},
			Meals:        []models.MealOption{chicken, steak},
			Addons:       []models.OrderItem{shake},
			Desserts:     []models.OrderItem{brownie},
			Availability: models.DeliveryAvailability{Sunday: true, Wednesday: true},
			Status:       models.OrderingStatus{Enabled: true},
			Settings:     models.Settings{Shipping: shippingBase},
		},
		profile: models.Profile{ID: "cust-1", Email: "sam@example.com", RouteID: 1},
	}
}

func (f *fakeBackend) update(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) Catalog(context.Context) (*backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snap
	return &snap, nil
}

func (f *fakeBackend) OrderingStatus(context.Context) (models.OrderingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Status, f.err
}

func (f *fakeBackend) Profile(context.Context) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.err
}

func (f *fakeBackend) PlaceOrder(_ context.Context, payload cart.OrderPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.orders = append(f.orders, payload)
	return fmt.Sprintf("ord-%d", len(f.orders)), nil
}

func (f *fakeBackend) placed() []cart.OrderPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders)
}

type fakePayment struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	requests []payment.SessionRequest
}

func (f *fakePayment) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_%d", len(f.requests))
	s := &payment.Session{ID: id, URL: "https://pay.example/" + id, Status: payment.StatusOpen, OrderID: req.OrderID}
	f.sessions[id] = s
	out := *s
	return &out, nil
}

func (f *fakePayment) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (f *fakePayment) sent() []payment.SessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

func (f *fakePayment) complete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Status = payment.StatusComplete
}

func (f *fakePayment) expire(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Status = payment.StatusExpired
}

type echoLookup struct{}

func (echoLookup) Suggest(_ context.Context, query string) ([]address.Suggestion, error) {
	return []address.Suggestion{{ID: "a1", Line1: query, Town: "London"}}, nil
}

type testEnv struct {
	t        *testing.T
	url      string
	jwt      *auth.JWTManager
	token    string
	backend  *fakeBackend
	payment  *fakePayment
	store    *memory.Store
	deps     *Dependencies
	registry *prometheus.Registry
}

// setupTestServer serves all four services behind the auth interceptor and
// returns an environment signed in as cust-1.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	sessions := session.NewManager(store, echoLookup{}, time.Millisecond)
	registry := prometheus.NewRegistry()

	env := &testEnv{
		t:        t,
		jwt:      auth.NewJWTManager("test-secret", time.Hour, ""),
		backend:  newFakeBackend(),
		payment:  &fakePayment{sessions: make(map[string]*payment.Session)},
		store:    store,
		registry: registry,
	}
	env.deps = &Dependencies{
		Backend:    env.backend,
		Payment:    env.payment,
		Checkouts:  store,
		Sessions:   sessions,
		Labels:     pricing.NewLabeler([]int{4, 7}),
		Gate:       wizard.NewGate([]int{10, 12}),
		Metrics:    NewMetrics(registry, sessions),
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cart",
		Now:        func() time.Time { return fixedNow },
	}

	interceptors := connect.WithInterceptors(middleware.RequireAuth(env.jwt))
	mux := http.NewServeMux()
	mux.Handle(NewBoxServiceHandler(NewBoxService(env.deps), interceptors))
	mux.Handle(NewCartServiceHandler(NewCartService(env.deps), interceptors))
	mux.Handle(NewCheckoutServiceHandler(NewCheckoutService(env.deps), interceptors))
	mux.Handle(NewAccountServiceHandler(NewAccountService(env.deps), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	env.url = server.URL
	env.token = env.tokenFor("cust-1")
	return env
}

func (e *testEnv) tokenFor(customerID string) string {
	e.t.Helper()
	token, err := e.jwt.Generate(customerID, customerID+"@example.com")
	if err != nil {
		e.t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// call invokes procedure as the signed-in customer.
func call[Req, Res any](e *testEnv, procedure string, msg *Req) (*Res, error) {
	client := rpc.NewClient[Req, Res](http.DefaultClient, e.url, procedure)
	req := connect.NewRequest(msg)
	if e.token != "" {
		req.Header().Set("Authorization", "Bearer "+e.token)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func mustCall[Req, Res any](e *testEnv, procedure string, msg *Req) *Res {
	e.t.Helper()
	res, err := call[Req, Res](e, procedure, msg)
	if err != nil {
		e.t.Fatalf("%s failed: %v", procedure, err)
	}
	return res
}

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil error", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("expected code %v, got %v (%v)", want, got, err)
	}
}

// buildBox walks the wizard to the review step with every slot filled by
// meal, using plan and days.
func (e *testEnv) buildBox(plan models.Plan, days models.DeliveryDay, meal models.MealOption) *BoxState {
	e.t.Helper()
	mustCall[Empty, CatalogResponse](e, BoxServiceLoadCatalogProcedure, &Empty{})
	mustCall[SetPlanRequest, BoxState](e, BoxServiceSetPlanProcedure, &SetPlanRequest{PlanID: plan.ID})
	st := mustCall[SetDeliveryDaysRequest, BoxState](e, BoxServiceSetDeliveryDaysProcedure, &SetDeliveryDaysRequest{DeliveryDays: days})
	mustCall[Empty, BoxState](e, BoxServiceNextProcedure, &Empty{})

	for _, day := range models.Days {
		n := len(st.Draft.Slots(day))
		for i := 0; i < n; i++ {
			mustCall[SelectMealRequest, BoxState](e, BoxServiceSelectMealProcedure, &SelectMealRequest{Day: day, Index: i, MealID: meal.ID})
		}
	}
	for i := 0; i < 3; i++ {
		st = mustCall[Empty, BoxState](e, BoxServiceNextProcedure, &Empty{})
	}
	if st.StepNumber != int(wizard.StepReview) {
		e.t.Fatalf("expected review step, got %s", st.Step)
	}
	return st
}
