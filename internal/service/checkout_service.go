package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/payment"
	"github.com/mmynk/mealbox/internal/rpc"
	"github.com/mmynk/mealbox/internal/storage"
)

const CheckoutServiceName = "mealbox.v1.CheckoutService"

var (
	CheckoutServiceCheckoutProcedure        = rpc.Procedure(CheckoutServiceName, "Checkout")
	CheckoutServiceConfirmCheckoutProcedure = rpc.Procedure(CheckoutServiceName, "ConfirmCheckout")
)

// CheckoutService places the cart as an order and hands payment to the
// hosted checkout page.
type CheckoutService struct {
	deps *Dependencies
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(deps *Dependencies) *CheckoutService {
	return &CheckoutService{deps: deps}
}

// NewCheckoutServiceHandler returns the path prefix and handler serving svc.
func NewCheckoutServiceHandler(svc *CheckoutService, opts ...connect.HandlerOption) (string, http.Handler) {
	return mount(CheckoutServiceName, func(mux *http.ServeMux) {
		rpc.Handle(mux, CheckoutServiceCheckoutProcedure, svc.Checkout, opts...)
		rpc.Handle(mux, CheckoutServiceConfirmCheckoutProcedure, svc.ConfirmCheckout, opts...)
	})
}

// Checkout places the order with the backend and opens a payment session
// for it. Failures are reported, never retried; the cart is kept until the
// payment is confirmed. Checking out the same cart again while its payment
// session is still usable returns that session instead of a second order.
func (s *CheckoutService) Checkout(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CheckoutResponse], error) {
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	slog.Info("Checkout request received", "customer_id", sess.CustomerID, "cart_items", sess.Cart.Len())

	items := sess.Cart.Items()
	if len(items) == 0 {
		return nil, s.deps.fail(ctx, "Checkout", errEmptyCart)
	}
	if sess.Catalog != nil && !sess.Catalog.Status.Enabled {
		return nil, s.deps.fail(ctx, "Checkout", errOrderingClosed)
	}

	cartKey := cart.Fingerprint(items)
	resumed, err := s.resume(ctx, sess.CustomerID, cartKey)
	if err != nil {
		return nil, s.deps.fail(ctx, "Checkout", err)
	}
	if resumed != nil {
		return connect.NewResponse(resumed), nil
	}

	payload := cart.BuildOrderPayload(items)
	orderID, err := s.deps.Backend.PlaceOrder(ctx, payload)
	if err != nil {
		s.deps.Metrics.checkout("place_order", "error", 0)
		return nil, s.deps.fail(ctx, "Checkout", err)
	}

	ps, err := s.deps.Payment.CreateSession(ctx, payment.SessionRequest{
		OrderID:       orderID,
		CustomerEmail: auth.Email(ctx),
		LineItems:     payment.LineItemsFor(items),
		SuccessURL:    s.deps.SuccessURL,
		CancelURL:     s.deps.CancelURL,
	})
	if err != nil {
		s.deps.Metrics.checkout("create_session", "error", 0)
		return nil, s.deps.fail(ctx, "Checkout", err)
	}

	if err := s.deps.Checkouts.RecordCheckout(ctx, &storage.Checkout{
		SessionID:   ps.ID,
		OrderID:     orderID,
		CustomerID:  sess.CustomerID,
		Total:       payload.Total,
		CartKey:     cartKey,
		RedirectURL: ps.URL,
	}); err != nil {
		return nil, s.deps.fail(ctx, "Checkout", connect.NewError(connect.CodeInternal, err))
	}
	s.deps.Metrics.checkout("start", "ok", int64(payload.Total))

	slog.Info("Checkout started",
		"customer_id", sess.CustomerID,
		"order_id", orderID,
		"session_id", ps.ID,
		"total", payload.Total,
	)
	return connect.NewResponse(&CheckoutResponse{
		OrderID:     orderID,
		SessionID:   ps.ID,
		RedirectURL: ps.URL,
		Total:       payload.Total,
	}), nil
}

// resume returns the pending checkout for the cart when its payment session
// can still be paid, or nil when a new checkout is needed.
func (s *CheckoutService) resume(ctx context.Context, customerID, cartKey string) (*CheckoutResponse, error) {
	rec, err := s.deps.Checkouts.PendingCheckout(ctx, customerID, cartKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	ps, err := s.deps.Payment.GetSession(ctx, rec.SessionID)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ps.Status == payment.StatusExpired {
		slog.Info("Pending checkout expired, starting a new one", "customer_id", customerID, "session_id", rec.SessionID)
		return nil, nil
	}

	slog.Info("Checkout already started for this cart",
		"customer_id", customerID,
		"order_id", rec.OrderID,
		"session_id", rec.SessionID,
	)
	s.deps.Metrics.checkout("start", "resumed", 0)
	return &CheckoutResponse{
		OrderID:     rec.OrderID,
		SessionID:   rec.SessionID,
		RedirectURL: rec.RedirectURL,
		Total:       rec.Total,
	}, nil
}

// ConfirmCheckout is called when the customer returns from the payment
// page. A completed payment marks the checkout paid and clears the cart.
func (s *CheckoutService) ConfirmCheckout(ctx context.Context, req *connect.Request[ConfirmCheckoutRequest]) (*connect.Response[ConfirmCheckoutResponse], error) {
	slog.Info("ConfirmCheckout request received", "session_id", req.Msg.SessionID)

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	rec, err := s.deps.Checkouts.GetCheckout(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, s.deps.fail(ctx, "ConfirmCheckout", err)
	}
	// Other customers' sessions are reported as missing.
	if rec.CustomerID != sess.CustomerID {
		return nil, s.deps.fail(ctx, "ConfirmCheckout", storage.ErrNotFound)
	}
	if rec.Status == storage.CheckoutPaid {
		return connect.NewResponse(&ConfirmCheckoutResponse{OrderID: rec.OrderID, Paid: true, Status: string(payment.StatusComplete)}), nil
	}

	ps, err := s.deps.Payment.GetSession(ctx, rec.SessionID)
	if err != nil {
		return nil, s.deps.fail(ctx, "ConfirmCheckout", err)
	}
	if ps.Status != payment.StatusComplete {
		s.deps.Metrics.checkout("confirm", string(ps.Status), 0)
		slog.Info("Checkout not paid", "session_id", rec.SessionID, "status", ps.Status)
		return connect.NewResponse(&ConfirmCheckoutResponse{OrderID: rec.OrderID, Status: string(ps.Status)}), nil
	}

	if err := s.deps.Checkouts.MarkCheckoutPaid(ctx, rec.SessionID); err != nil {
		return nil, s.deps.fail(ctx, "ConfirmCheckout", connect.NewError(connect.CodeInternal, err))
	}
	sess.Cart.Clear()
	if err := persist(ctx, s.deps, sess, "ConfirmCheckout"); err != nil {
		return nil, err
	}
	s.deps.Metrics.checkout("confirm", "paid", 0)

	slog.Info("Checkout paid", "customer_id", sess.CustomerID, "order_id", rec.OrderID)
	return connect.NewResponse(&ConfirmCheckoutResponse{OrderID: rec.OrderID, Paid: true, Status: string(ps.Status)}), nil
}
