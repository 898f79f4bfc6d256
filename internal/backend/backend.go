// Package backend is the client for the meal-prep REST backend that owns
// the catalog, customer profiles and orders.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/cart"
	"github.com/mmynk/mealbox/internal/models"
)

var (
	// ErrUnauthorized means the backend rejected the customer's token.
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrNotFound     = errors.New("backend resource not found")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the meal-prep backend on behalf of the customer whose
// bearer token is in the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Packages(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	return out, c.do(ctx, http.MethodGet, "/packages", nil, &out)
}

func (c *Client) Meals(ctx context.Context) ([]models.MealOption, error) {
	var out []models.MealOption
	return out, c.do(ctx, http.MethodGet, "/meals", nil, &out)
}

func (c *Client) Addons(ctx context.Context) ([]models.OrderItem, error) {
	var out []models.OrderItem
	return out, c.do(ctx, http.MethodGet, "/addons", nil, &out)
}

// Extras returns the desserts.
func (c *Client) Extras(ctx context.Context) ([]models.OrderItem, error) {
	var out []models.OrderItem
	return out, c.do(ctx, http.MethodGet, "/extras", nil, &out)
}

func (c *Client) DeliveryAvailability(ctx context.Context) (models.DeliveryAvailability, error) {
	var out models.DeliveryAvailability
	return out, c.do(ctx, http.MethodGet, "/delivery-availability", nil, &out)
}

func (c *Client) OrderingStatus(ctx context.Context) (models.OrderingStatus, error) {
	var out models.OrderingStatus
	return out, c.do(ctx, http.MethodGet, "/ordering-status", nil, &out)
}

func (c *Client) Settings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	return out, c.do(ctx, http.MethodGet, "/settings", nil, &out)
}

// Profile returns the signed-in customer.
func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	return out, c.do(ctx, http.MethodGet, "/profile", nil, &out)
}

type placeOrderResponse struct {
	OrderID string `json:"orderId"`
}

// PlaceOrder submits the cart and returns the backend's order id.
func (c *Client) PlaceOrder(ctx context.Context, payload cart.OrderPayload) (string, error) {
	var out placeOrderResponse
	if err := c.do(ctx, http.MethodPost, "/order/place", payload, &out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", errors.New("backend returned no order id")
	}
	return out.OrderID, nil
}
