package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/rpc"
)

const AccountServiceName = "mealbox.v1.AccountService"

var (
	AccountServiceGetProfileProcedure     = rpc.Procedure(AccountServiceName, "GetProfile")
	AccountServiceSuggestAddressProcedure = rpc.Procedure(AccountServiceName, "SuggestAddress")
	AccountServiceSignOutProcedure        = rpc.Procedure(AccountServiceName, "SignOut")
)

// AccountService exposes the customer's profile, address autocomplete and
// sign-out.
type AccountService struct {
	deps *Dependencies
}

// NewAccountService creates an AccountService.
func NewAccountService(deps *Dependencies) *AccountService {
	return &AccountService{deps: deps}
}

// NewAccountServiceHandler returns the path prefix and handler serving svc.
func NewAccountServiceHandler(svc *AccountService, opts ...connect.HandlerOption) (string, http.Handler) {
	return mount(AccountServiceName, func(mux *http.ServeMux) {
		rpc.Handle(mux, AccountServiceGetProfileProcedure, svc.GetProfile, opts...)
		rpc.Handle(mux, AccountServiceSuggestAddressProcedure, svc.SuggestAddress, opts...)
		rpc.Handle(mux, AccountServiceSignOutProcedure, svc.SignOut, opts...)
	})
}

func (s *AccountService) GetProfile(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ProfileResponse], error) {
	slog.Info("GetProfile request received", "customer_id", auth.CustomerID(ctx))

	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	profile, err := s.deps.profile(ctx, sess)
	if err != nil {
		return nil, s.deps.fail(ctx, "GetProfile", err)
	}
	return connect.NewResponse(&ProfileResponse{
		Profile:  profile,
		Remapped: s.deps.Labels.Remapped(profile.RouteID),
	}), nil
}

// SuggestAddress returns autocomplete candidates for query. A call
// overtaken by a newer one from the same customer fails with CodeAborted and
// its result should be dropped.
func (s *AccountService) SuggestAddress(ctx context.Context, req *connect.Request[SuggestAddressRequest]) (*connect.Response[SuggestAddressResponse], error) {
	// The session lock is not held while waiting so that a newer keystroke
	// can supersede this one.
	sess, err := s.deps.session(ctx)
	if err != nil {
		return nil, err
	}
	debouncer := sess.Address
	sess.Unlock()

	suggestions, err := debouncer.Suggest(ctx, req.Msg.Query)
	if err != nil {
		return nil, s.deps.fail(ctx, "SuggestAddress", err)
	}
	return connect.NewResponse(&SuggestAddressResponse{Suggestions: suggestions}), nil
}

// SignOut ends the customer's session. The saved cart is kept.
func (s *AccountService) SignOut(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Empty], error) {
	customerID := auth.CustomerID(ctx)
	slog.Info("SignOut request received", "customer_id", customerID)

	if customerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	s.deps.Sessions.End(customerID)
	return connect.NewResponse(&Empty{}), nil
}
