// Package auth validates customer session tokens and carries the caller's
// identity and bearer credential through request contexts.
package auth

import "context"

type contextKey string

const (
	customerIDKey contextKey = "customer_id"
	emailKey      contextKey = "email"
	tokenKey      contextKey = "token"
)

// WithIdentity returns ctx carrying the authenticated customer and the raw
// bearer token, which is forwarded to the backend.
func WithIdentity(ctx context.Context, customerID, email, token string) context.Context {
	ctx = context.WithValue(ctx, customerIDKey, customerID)
	ctx = context.WithValue(ctx, emailKey, email)
	return context.WithValue(ctx, tokenKey, token)
}

// CustomerID returns the authenticated customer, or "" if none.
func CustomerID(ctx context.Context) string {
	v, _ := ctx.Value(customerIDKey).(string)
	return v
}

// Email returns the authenticated customer's email, or "" if none.
func Email(ctx context.Context) string {
	v, _ := ctx.Value(emailKey).(string)
	return v
}

// Token returns the bearer token of the request, or "" if none.
func Token(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
