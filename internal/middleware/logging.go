package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mealbox/internal/auth"
)

// LoggingInterceptor logs one line per RPC with the service, method, result
// code, customer and duration.
//
// Codes caused by what the customer did (a rejected edit, a stale address
// lookup) are logged at info; collaborator failures at warn; anything that
// is not a Connect error at error.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			service, method := splitProcedure(req.Spec().Procedure)

			resp, err := next(ctx, req)

			attrs := []any{
				"service", service,
				"method", method,
				"code", codeOf(err),
				"protocol", req.Peer().Protocol,
				"customer_id", auth.CustomerID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case customerFacing(connect.CodeOf(err)):
				slog.Info("RPC rejected", append(attrs, "reason", messageOf(err))...)
			case isConnectError(err):
				slog.Warn("RPC error", append(attrs, "error", messageOf(err))...)
			default:
				slog.Error("RPC error", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}

// splitProcedure turns "/mealbox.v1.CartService/AddToCart" into
// ("CartService", "AddToCart").
func splitProcedure(procedure string) (service, method string) {
	path := strings.TrimPrefix(procedure, "/")
	service, method, ok := strings.Cut(path, "/")
	if !ok {
		return "", path
	}
	if i := strings.LastIndex(service, "."); i >= 0 {
		service = service[i+1:]
	}
	return service, method
}

func customerFacing(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound,
		connect.CodePermissionDenied, connect.CodeUnauthenticated, connect.CodeAborted:
		return true
	}
	return false
}

func asConnectError(err error) (*connect.Error, bool) {
	var connectErr *connect.Error
	ok := errors.As(err, &connectErr)
	return connectErr, ok
}

func isConnectError(err error) bool {
	_, ok := asConnectError(err)
	return ok
}

func messageOf(err error) string {
	if ce, ok := asConnectError(err); ok {
		return ce.Message()
	}
	return err.Error()
}
