package backend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/mealbox/internal/models"
)

// Snapshot is everything the wizard needs from the backend, fetched at once.
type Snapshot struct {
	Plans        []models.Plan
	Meals        []models.MealOption
	Addons       []models.OrderItem
	Desserts     []models.OrderItem
	Availability models.DeliveryAvailability
	Status       models.OrderingStatus
	Settings     models.Settings
	FetchedAt    time.Time

	// AddonsErr and DessertsErr hold the failure of an optional section.
	// The first two steps work without them.
	AddonsErr   error
	DessertsErr error
}

// Plan looks up a plan by id.
func (s *Snapshot) Plan(id int) (models.Plan, bool) {
	for _, p := range s.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}

// Meal looks up a meal by id.
func (s *Snapshot) Meal(id int) (models.MealOption, bool) {
	for _, m := range s.Meals {
		if m.ID == id {
			return m, true
		}
	}
	return models.MealOption{}, false
}

// Addon looks up an add-on by id.
func (s *Snapshot) Addon(id int) (models.OrderItem, bool) {
	return findItem(s.Addons, id)
}

// Dessert looks up a dessert by id.
func (s *Snapshot) Dessert(id int) (models.OrderItem, bool) {
	return findItem(s.Desserts, id)
}

func findItem(items []models.OrderItem, id int) (models.OrderItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.OrderItem{}, false
}

// Catalog fetches all catalog sections concurrently. Plans, meals,
// availability, ordering status and settings are required; add-on and
// dessert failures are recorded on the snapshot instead.
func (c *Client) Catalog(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Plans, err = c.Packages(gctx)
		return wrap("packages", err)
	})
	g.Go(func() (err error) {
		snap.Meals, err = c.Meals(gctx)
		return wrap("meals", err)
	})
	g.Go(func() (err error) {
		snap.Availability, err = c.DeliveryAvailability(gctx)
		return wrap("delivery availability", err)
	})
	g.Go(func() (err error) {
		snap.Status, err = c.OrderingStatus(gctx)
		return wrap("ordering status", err)
	})
	g.Go(func() (err error) {
		snap.Settings, err = c.Settings(gctx)
		return wrap("settings", err)
	})
	g.Go(func() error {
		snap.Addons, snap.AddonsErr = c.Addons(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Desserts, snap.DessertsErr = c.Extras(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}

func wrap(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to fetch %s: %w", section, err)
}
