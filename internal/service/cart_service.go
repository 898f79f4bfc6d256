package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/rpc"
	"github.com/mmynk/mealbox/internal/session"
	"github.com/mmynk/mealbox/internal/wizard"
)

const CartServiceName = "mealbox.v1.CartService"

var (
	CartServiceGetCartProcedure        = rpc.Procedure(CartServiceName, "GetCart")
	CartServiceAddToCartProcedure      = rpc.Procedure(CartServiceName, "AddToCart")
	CartServiceRemoveFromCartProcedure = rpc.Procedure(CartServiceName, "RemoveFromCart")
	CartServiceClearCartProcedure      = rpc.Procedure(CartServiceName, "ClearCart")
)

// CartService manages the customer's committed boxes.
type CartService struct {
	deps *Dependencies
}

// NewCartService creates a CartService.
func NewCartService(deps *Dependencies) *CartService {
	return &CartService{deps: deps}
}

// NewCartServiceHandler returns the path prefix and handler serving svc.
func NewCartServiceHandler(svc *CartService, opts ...connect.HandlerOption) (string, http.Handler) {
	return mount(CartServiceName, func(mux *http.ServeMux) {
		rpc.Handle(mux, CartServiceGetCartProcedure, svc.GetCart, opts...)
		rpc.Handle(mux, CartServiceAddToCartProcedure, svc.AddToCart, opts...)
		rpc.Handle(mux, CartServiceRemoveFromCartProcedure, svc.RemoveFromCart, opts...)
		rpc.Handle(mux, CartServiceClearCartProcedure, svc.ClearCart, opts...)
	})
}

func (s *CartService) GetCart(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CartResponse], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	return connect.NewResponse(cartView(sess.Cart)), nil
}

// AddToCart commits the reviewed draft as a new line item and starts a
// fresh box.
func (s *CartService) AddToCart(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[AddToCartResponse], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	slog.Info("AddToCart request received", "customer_id", sess.CustomerID, "cart_items", sess.Cart.Len())

	if sess.Wizard.Current() != wizard.StepReview {
		return nil, s.deps.fail(ctx, "AddToCart", errNotAtReview)
	}
	snap, err := catalogOf(sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "AddToCart", err)
	}
	profile, err := s.deps.profile(ctx, sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "AddToCart", err)
	}
	switch s.deps.Gate.Decide(profile, snap.Status, s.deps.now()).View {
	case wizard.ViewCountdown:
		return nil, s.deps.fail(ctx, "AddToCart", errOrderingClosed)
	case wizard.ViewAccountNotActivated:
		return nil, s.deps.fail(ctx, "AddToCart", errNotActivated)
	}

	d := sess.Draft.Snapshot()
	item, err := sess.Cart.Add(d, s.deps.Pricer.LineBreakdown(d, snap.Settings.Shipping))
	if err != nil {
		return nil, s.deps.fail(ctx, "AddToCart", err)
	}
	if err := sess.SaveCart(ctx); err != nil {
		sess.Cart.Remove(item.ID)
		return nil, s.deps.fail(ctx, "AddToCart", connect.NewError(connect.CodeInternal, err))
	}

	sess.Draft.Reset()
	sess.Wizard.Restart()
	s.deps.Metrics.boxAdded()

	slog.Info("Box added to cart",
		"customer_id", sess.CustomerID,
		"line_id", item.ID,
		"total", item.TotalPrice,
		"cart_items", sess.Cart.Len(),
	)
	return connect.NewResponse(&AddToCartResponse{
		Item:  item,
		Cart:  *cartView(sess.Cart),
		State: s.deps.state(sess, ""),
	}), nil
}

// RemoveFromCart removes a line item. Unknown ids are not an error.
func (s *CartService) RemoveFromCart(ctx context.Context, req *connect.Request[RemoveFromCartRequest]) (*connect.Response[RemoveFromCartResponse], error) {
	slog.Info("RemoveFromCart request received", "line_id", req.Msg.ID)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	removed := sess.Cart.Remove(req.Msg.ID)
	if removed {
		if err := persist(ctx, s.deps, sess, "RemoveFromCart"); err != nil {
			return nil, err
		}
	}
	return connect.NewResponse(&RemoveFromCartResponse{Removed: removed, Cart: *cartView(sess.Cart)}), nil
}

func (s *CartService) ClearCart(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CartResponse], error) {
	slog.Info("ClearCart request received", "customer_id", auth.CustomerID(ctx))

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	sess.Cart.Clear()
	if err := persist(ctx, s.deps, sess, "ClearCart"); err != nil {
		return nil, err
	}
	return connect.NewResponse(cartView(sess.Cart)), nil
}

func persist(ctx context.Context, deps *Dependencies, sess *session.Session, procedure string) error {
	if err := sess.SaveCart(ctx); err != nil {
		return deps.fail(ctx, procedure, connect.NewError(connect.CodeInternal, err))
	}
	return nil
}

func cartView(c *cart.Cart) *CartResponse {
	items := c.Items()
	if items == nil {
		items = []models.LineItem{}
	}
	return &CartResponse{Items: items, Totals: c.Totals()}
}
