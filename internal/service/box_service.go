package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/backend"
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/pricing"
	"github.com/mmynk/mealbox/internal/rpc"
	"github.com/mmynk/mealbox/internal/session"
	"github.com/mmynk/mealbox/internal/wizard"
)

const BoxServiceName = "mealbox.v1.BoxService"

var (
	BoxServiceGetEntryProcedure         = rpc.Procedure(BoxServiceName, "GetEntry")
	BoxServiceLoadCatalogProcedure      = rpc.Procedure(BoxServiceName, "LoadCatalog")
	BoxServiceGetStateProcedure         = rpc.Procedure(BoxServiceName, "GetState")
	BoxServiceSetPlanProcedure          = rpc.Procedure(BoxServiceName, "SetPlan")
	BoxServiceSetDeliveryDaysProcedure  = rpc.Procedure(BoxServiceName, "SetDeliveryDays")
	BoxServiceSelectMealProcedure       = rpc.Procedure(BoxServiceName, "SelectMeal")
	BoxServiceSetDoubleProteinProcedure = rpc.Procedure(BoxServiceName, "SetDoubleProtein")
	BoxServiceUpdateAddonProcedure      = rpc.Procedure(BoxServiceName, "UpdateAddon")
	BoxServiceUpdateDessertProcedure    = rpc.Procedure(BoxServiceName, "UpdateDessert")
	BoxServiceNextProcedure             = rpc.Procedure(BoxServiceName, "Next")
	BoxServiceBackProcedure             = rpc.Procedure(BoxServiceName, "Back")
	BoxServiceEditProcedure             = rpc.Procedure(BoxServiceName, "Edit")
	BoxServiceRestartProcedure          = rpc.Procedure(BoxServiceName, "Restart")
)

const (
	noticeDeliveryCleared = "Your delivery day is no longer available. Please choose another."
	noticeSplitCleared    = "This plan can't be split across two deliveries. Please choose a delivery day again."
)

// BoxService drives the five-step box builder.
type BoxService struct {
	deps *Dependencies
}

// NewBoxService creates a BoxService.
func NewBoxService(deps *Dependencies) *BoxService {
	return &BoxService{deps: deps}
}

// NewBoxServiceHandler returns the path prefix and handler serving svc.
func NewBoxServiceHandler(svc *BoxService, opts ...connect.HandlerOption) (string, http.Handler) {
	return mount(BoxServiceName, func(mux *http.ServeMux) {
		rpc.Handle(mux, BoxServiceGetEntryProcedure, svc.GetEntry, opts...)
		rpc.Handle(mux, BoxServiceLoadCatalogProcedure, svc.LoadCatalog, opts...)
		rpc.Handle(mux, BoxServiceGetStateProcedure, svc.GetState, opts...)
		rpc.Handle(mux, BoxServiceSetPlanProcedure, svc.SetPlan, opts...)
		rpc.Handle(mux, BoxServiceSetDeliveryDaysProcedure, svc.SetDeliveryDays, opts...)
		rpc.Handle(mux, BoxServiceSelectMealProcedure, svc.SelectMeal, opts...)
		rpc.Handle(mux, BoxServiceSetDoubleProteinProcedure, svc.SetDoubleProtein, opts...)
		rpc.Handle(mux, BoxServiceUpdateAddonProcedure, svc.UpdateAddon, opts...)
		rpc.Handle(mux, BoxServiceUpdateDessertProcedure, svc.UpdateDessert, opts...)
		rpc.Handle(mux, BoxServiceNextProcedure, svc.Next, opts...)
		rpc.Handle(mux, BoxServiceBackProcedure, svc.Back, opts...)
		rpc.Handle(mux, BoxServiceEditProcedure, svc.Edit, opts...)
		rpc.Handle(mux, BoxServiceRestartProcedure, svc.Restart, opts...)
	})
}

// GetEntry decides whether the customer sees the builder, the ordering
// countdown or the account-not-activated page.
func (s *BoxService) GetEntry(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[EntryResponse], error) {
	slog.Info("GetEntry request received", "customer_id", auth.CustomerID(ctx))

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	profile, err := s.deps.profile(ctx, sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "GetEntry", err)
	}
	status, err := s.deps.Backend.OrderingStatus(ctx)
	if err != nil {
		return nil, s.deps.fail(ctx, "GetEntry", err)
	}

	entry := s.deps.Gate.Decide(profile, status, s.deps.now())
	resp := &EntryResponse{View: entry.View}
	if !entry.OpensAt.IsZero() {
		opensAt := entry.OpensAt
		resp.OpensAt = &opensAt
		resp.OpensInSeconds = int64(entry.OpensIn / time.Second)
	}

	slog.Info("GetEntry successful", "view", entry.View, "route_id", profile.RouteID)
	return connect.NewResponse(resp), nil
}

// LoadCatalog fetches the menu and delivery settings. A delivery selection
// that the new availability no longer allows is cleared.
func (s *BoxService) LoadCatalog(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CatalogResponse], error) {
	slog.Info("LoadCatalog request received", "customer_id", auth.CustomerID(ctx))

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if _, err := s.deps.profile(ctx, sess); err != nil {
		return nil, s.deps.fail(ctx, "LoadCatalog", err)
	}
	snap, err := s.deps.Backend.Catalog(ctx)
	if err != nil {
		return nil, s.deps.fail(ctx, "LoadCatalog", err)
	}
	sess.Catalog = snap

	var notice string
	if d, changed := pricing.Reconcile(sess.Draft.Snapshot(), snap.Availability); changed {
		sess.Draft.Replace(d)
		if sess.Wizard.Current() > wizard.StepPlanAndDelivery {
			sess.Wizard.Edit()
		}
		notice = noticeDeliveryCleared
		slog.Info("Delivery selection cleared by availability change", "customer_id", sess.CustomerID)
	}

	resp := &CatalogResponse{
		Plans:    snap.Plans,
		Meals:    snap.Meals,
		Addons:   snap.Addons,
		Desserts: snap.Desserts,
		State:    s.deps.state(sess, notice),
	}
	if snap.AddonsErr != nil {
		slog.Warn("Add-ons failed to load", "error", snap.AddonsErr)
		resp.AddonsError = errSectionDown.Error()
	}
	if snap.DessertsErr != nil {
		slog.Warn("Desserts failed to load", "error", snap.DessertsErr)
		resp.DessertsError = errSectionDown.Error()
	}

	slog.Info("LoadCatalog successful",
		"plans", len(snap.Plans),
		"meals", len(snap.Meals),
		"addons", len(snap.Addons),
		"desserts", len(snap.Desserts),
	)
	return connect.NewResponse(resp), nil
}

func (s *BoxService) GetState(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BoxState], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	st := s.deps.state(sess, "")
	return connect.NewResponse(&st), nil
}

// SetPlan selects a plan by id. Meal choices are discarded.
func (s *BoxService) SetPlan(ctx context.Context, req *connect.Request[SetPlanRequest]) (*connect.Response[BoxState], error) {
	slog.Info("SetPlan request received", "plan_id", req.Msg.PlanID)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "SetPlan", err)
	}
	plan, ok := snap.Plan(req.Msg.PlanID)
	if !ok {
		return nil, s.deps.fail(ctx, "SetPlan", fmt.Errorf("%w: plan %d", errUnknownItem, req.Msg.PlanID))
	}

	before := sess.Draft.Snapshot()
	after := sess.Draft.SetPlan(plan)

	var notice string
	if before.DeliveryDays == models.DeliveryBoth && after.DeliveryDays == "" {
		notice = noticeSplitCleared
	}
	return s.respond(sess, notice)
}

// SetDeliveryDays selects Sunday, Wednesday or Both.
func (s *BoxService) SetDeliveryDays(ctx context.Context, req *connect.Request[SetDeliveryDaysRequest]) (*connect.Response[BoxState], error) {
	slog.Info("SetDeliveryDays request received", "delivery_days", req.Msg.DeliveryDays)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "SetDeliveryDays", err)
	}
	days := req.Msg.DeliveryDays
	if !days.Valid() {
		return nil, s.deps.fail(ctx, "SetDeliveryDays", fmt.Errorf("%w: %q", draft.ErrInvalidDeliveryDay, days))
	}
	// The meal-count check is left to the draft so it reports ErrUnevenSplit.
	if !pricing.Eligible(days, snap.Availability, nil) {
		return nil, s.deps.fail(ctx, "SetDeliveryDays", fmt.Errorf("%w: %s", errDayUnavailable, days))
	}
	if _, err := sess.Draft.SetDeliveryDays(days); err != nil {
		return nil, s.deps.fail(ctx, "SetDeliveryDays", err)
	}
	return s.respond(sess, "")
}

// SelectMeal fills or empties one slot. Indexes outside the current layout
// are ignored.
func (s *BoxService) SelectMeal(ctx context.Context, req *connect.Request[SelectMealRequest]) (*connect.Response[BoxState], error) {
	slog.Info("SelectMeal request received", "day", req.Msg.Day, "index", req.Msg.Index, "meal_id", req.Msg.MealID)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := validDay(req.Msg.Day); err != nil {
		return nil, s.deps.fail(ctx, "SelectMeal", err)
	}
	if req.Msg.MealID == 0 {
		sess.Draft.ClearMeal(req.Msg.Day, req.Msg.Index)
		return s.respond(sess, "")
	}

	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "SelectMeal", err)
	}
	meal, ok := snap.Meal(req.Msg.MealID)
	if !ok {
		return nil, s.deps.fail(ctx, "SelectMeal", fmt.Errorf("%w: meal %d", errUnknownItem, req.Msg.MealID))
	}
	sess.Draft.SelectMeal(req.Msg.Day, req.Msg.Index, meal)
	return s.respond(sess, "")
}

// SetDoubleProtein toggles the double-protein variant of a filled slot.
func (s *BoxService) SetDoubleProtein(ctx context.Context, req *connect.Request[SetDoubleProteinRequest]) (*connect.Response[BoxState], error) {
	slog.Info("SetDoubleProtein request received", "day", req.Msg.Day, "index", req.Msg.Index, "on", req.Msg.On)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := validDay(req.Msg.Day); err != nil {
		return nil, s.deps.fail(ctx, "SetDoubleProtein", err)
	}
	sess.Draft.SetDoubleProtein(req.Msg.Day, req.Msg.Index, req.Msg.On)
	return s.respond(sess, "")
}

// UpdateAddon sets or adjusts the quantity of an add-on for one delivery day.
// A delta that would go below zero stops at zero.
func (s *BoxService) UpdateAddon(ctx context.Context, req *connect.Request[UpdateAddonRequest]) (*connect.Response[BoxState], error) {
	slog.Info("UpdateAddon request received", "item_id", req.Msg.ItemID, "day", req.Msg.Day)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "UpdateAddon", err)
	}
	if snap.AddonsErr != nil {
		return nil, s.deps.fail(ctx, "UpdateAddon", errSectionDown)
	}
	item, ok := snap.Addon(req.Msg.ItemID)
	if !ok {
		return nil, s.deps.fail(ctx, "UpdateAddon", fmt.Errorf("%w: add-on %d", errUnknownItem, req.Msg.ItemID))
	}

	current := draft.Quantity(sess.Draft.Snapshot().AddonsFor(req.Msg.Day), item.ID)
	qty, err := resolveQuantity(current, req.Msg.Quantity, req.Msg.Delta)
	if err != nil {
		return nil, s.deps.fail(ctx, "UpdateAddon", err)
	}
	if _, err := sess.Draft.UpdateAddonQuantity(item, qty, req.Msg.Day); err != nil {
		return nil, s.deps.fail(ctx, "UpdateAddon", err)
	}
	return s.respond(sess, "")
}

// UpdateDessert sets or adjusts the quantity of a dessert.
func (s *BoxService) UpdateDessert(ctx context.Context, req *connect.Request[UpdateDessertRequest]) (*connect.Response[BoxState], error) {
	slog.Info("UpdateDessert request received", "item_id", req.Msg.ItemID)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "UpdateDessert", err)
	}
	if snap.DessertsErr != nil {
		return nil, s.deps.fail(ctx, "UpdateDessert", errSectionDown)
	}
	item, ok := snap.Dessert(req.Msg.ItemID)
	if !ok {
		return nil, s.deps.fail(ctx, "UpdateDessert", fmt.Errorf("%w: dessert %d", errUnknownItem, req.Msg.ItemID))
	}

	current := draft.Quantity(sess.Draft.Snapshot().Desserts, item.ID)
	qty, err := resolveQuantity(current, req.Msg.Quantity, req.Msg.Delta)
	if err != nil {
		return nil, s.deps.fail(ctx, "UpdateDessert", err)
	}
	if _, err := sess.Draft.UpdateDessertQuantity(item, qty); err != nil {
		return nil, s.deps.fail(ctx, "UpdateDessert", err)
	}
	return s.respond(sess, "")
}

// Next advances one step if the current step is complete.
func (s *BoxService) Next(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BoxState], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	from := sess.Wizard.Current()
	if err := sess.Wizard.Next(sess.State()); err != nil {
		return nil, s.deps.fail(ctx, "Next", err)
	}
	slog.Info("Wizard advanced", "customer_id", sess.CustomerID, "from", from, "to", sess.Wizard.Current())
	return s.respond(sess, "")
}

func (s *BoxService) Back(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BoxState], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	sess.Wizard.Back()
	return s.respond(sess, "")
}

// Edit returns to the first step keeping every choice.
func (s *BoxService) Edit(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BoxState], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	sess.Wizard.Edit()
	return s.respond(sess, "")
}

// Restart discards the draft and returns to the first step.
func (s *BoxService) Restart(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BoxState], error) {
	slog.Info("Restart request received", "customer_id", auth.CustomerID(ctx))

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	sess.Wizard.Restart()
	sess.Draft.Reset()
	return s.respond(sess, "")
}

func (s *BoxService) respond(sess *session.Session, notice string) (*connect.Response[BoxState], error) {
	st := s.deps.state(sess, notice)
	return connect.NewResponse(&st), nil
}

// state renders the session for the UI.
func (d *Dependencies) state(sess *session.Session, notice string) BoxState {
	st := sess.State()

	var routeID int
	if sess.Profile != nil {
		routeID = sess.Profile.RouteID
	}
	var avail models.DeliveryAvailability
	var shipping models.Money
	if sess.Catalog != nil {
		avail = sess.Catalog.Availability
		shipping = sess.Catalog.Settings.Shipping
	}

	return BoxState{
		Step:            sess.Wizard.Current().String(),
		StepNumber:      int(sess.Wizard.Current()),
		CanAdvance:      sess.Wizard.CanAdvance(st),
		Version:         sess.Version(),
		Draft:           st.Draft,
		Quote:           d.Pricer.Quote(st.Draft, shipping),
		DeliveryOptions: pricing.AvailableDays(avail, st.Draft.Plan, d.Labels, routeID),
		DayLabels: DayLabels{
			Sunday:    d.Labels.DayLabel(models.Sunday, routeID),
			Wednesday: d.Labels.DayLabel(models.Wednesday, routeID),
		},
		CatalogLoaded: sess.Catalog != nil,
		Notice:        notice,
	}
}

// profile returns the customer's profile, fetching it once per session.
func (d *Dependencies) profile(ctx context.Context, sess *session.Session) (models.Profile, error) {
	if sess.Profile != nil {
		return *sess.Profile, nil
	}
	p, err := d.Backend.Profile(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	sess.Profile = &p
	return p, nil
}

func catalogOf(sess *session.Session) (*backend.Snapshot, error) {
	if sess.Catalog == nil {
		return nil, errCatalogNotLoaded
	}
	return sess.Catalog, nil
}

func validDay(day models.Day) error {
	if day != models.Sunday && day != models.Wednesday {
		return fmt.Errorf("%w: %q", draft.ErrInvalidDay, day)
	}
	return nil
}

// resolveQuantity turns an absolute quantity or a delta into the quantity to
// store. Deltas never take the quantity below zero.
func resolveQuantity(current int, quantity, delta *int) (int, error) {
	switch {
	case quantity != nil:
		return *quantity, nil
	case delta != nil:
		return max(current+*delta, 0), nil
	}
	return 0, errQuantityMissing
}
