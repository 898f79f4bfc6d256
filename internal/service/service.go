// Package service implements the Connect procedures the storefront UI
// calls while a customer builds boxes, manages the cart and checks out.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/address"
	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/backend"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/draft"
	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/payment"
	"github.com/mmynk/mealbox/internal/pricing"
	"github.com/mmynk/mealbox/internal/session"
	"github.com/mmynk/mealbox/internal/storage"
	"github.com/mmynk/mealbox/internal/wizard"
)

var (
	errCatalogNotLoaded = errors.New("catalog has not been loaded")
	errUnknownItem      = errors.New("unknown catalog item")
	errDayUnavailable   = errors.New("delivery option is not available")
	errSectionDown      = errors.New("this section of the menu is unavailable right now")
	errQuantityMissing  = errors.New("either quantity or delta is required")
	errNotAtReview      = errors.New("the box can only be added from the review step")
	errEmptyCart        = errors.New("cart is empty")
	errOrderingClosed   = errors.New("ordering is currently closed")
	errNotActivated     = errors.New("account is not activated for ordering")
)

// Backend is the part of the meal-prep backend the services use.
type Backend interface {
	Catalog(ctx context.Context) (*backend.Snapshot, error)
	OrderingStatus(ctx context.Context) (models.OrderingStatus, error)
	Profile(ctx context.Context) (models.Profile, error)
	PlaceOrder(ctx context.Context, payload cart.OrderPayload) (string, error)
}

// PaymentGateway creates and inspects hosted checkout sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	GetSession(ctx context.Context, id string) (*payment.Session, error)
}

// Dependencies are shared by all services.
type Dependencies struct {
	Backend   Backend
	Payment   PaymentGateway
	Checkouts storage.CheckoutLog
	Sessions  *session.Manager
	Pricer    pricing.Pricer
	Labels    pricing.Labeler
	Gate      wizard.Gate
	Metrics   *Metrics

	// SuccessURL and CancelURL are where the payment page sends the customer back to.
	SuccessURL string
	CancelURL  string

	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// session returns the caller's session, locked. The caller must unlock it.
func (d *Dependencies) session(ctx context.Context) (*session.Session, error) {
	customerID := auth.CustomerID(ctx)
	if customerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	sess, err := d.Sessions.Get(ctx, customerID)
	if err != nil {
		slog.Error("Failed to open session", "customer_id", customerID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	sess.Lock()
	return sess, nil
}

// fail logs err and converts it to a Connect error. A backend that rejects
// the customer's credentials ends the session so the UI signs them out.
func (d *Dependencies) fail(ctx context.Context, procedure string, err error) error {
	code := codeFor(err)
	customerID := auth.CustomerID(ctx)

	switch code {
	case connect.CodeUnauthenticated:
		slog.Warn("Backend rejected session, signing out", "procedure", procedure, "customer_id", customerID)
		d.Sessions.End(customerID)
		d.Metrics.forcedSignOut()
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound,
		connect.CodePermissionDenied, connect.CodeAborted:
		slog.Info(procedure+" rejected", "customer_id", customerID, "reason", err)
	default:
		slog.Error(procedure+" failed", "customer_id", customerID, "error", err)
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(code, err)
}

func codeFor(err error) connect.Code {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr.Code()
	case errors.Is(err, backend.ErrUnauthorized):
		return connect.CodeUnauthenticated
	case errors.Is(err, backend.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, draft.ErrInvalidDeliveryDay),
		errors.Is(err, draft.ErrInvalidDay),
		errors.Is(err, draft.ErrNegativeQuantity),
		errors.Is(err, errUnknownItem),
		errors.Is(err, errQuantityMissing):
		return connect.CodeInvalidArgument
	case errors.Is(err, draft.ErrUnevenSplit),
		errors.Is(err, draft.ErrDessertsUnavailable),
		errors.Is(err, draft.ErrAddonDayUnavailable),
		errors.Is(err, wizard.ErrBlocked),
		errors.Is(err, wizard.ErrAtEnd),
		errors.Is(err, cart.ErrIncompleteDraft),
		errors.Is(err, errCatalogNotLoaded),
		errors.Is(err, errDayUnavailable),
		errors.Is(err, errNotAtReview),
		errors.Is(err, errEmptyCart),
		errors.Is(err, errOrderingClosed):
		return connect.CodeFailedPrecondition
	case errors.Is(err, errNotActivated):
		return connect.CodePermissionDenied
	case errors.Is(err, address.ErrSuperseded):
		return connect.CodeAborted
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	// Anything else came from a collaborator that may recover; the UI shows
	// it as a dismissible notice and does not retry.
	return connect.CodeUnavailable
}

// mount registers every procedure of one service on a fresh mux and returns
// the service's path prefix with it, ready for http.ServeMux.Handle.
func mount(service string, register func(mux *http.ServeMux)) (string, http.Handler) {
	mux := http.NewServeMux()
	register(mux)
	return "/" + service + "/", mux
}
