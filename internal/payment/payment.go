// Package payment creates and inspects hosted checkout sessions on the
// payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmynk/mealbox/internal/models"
)

var ErrNotFound = errors.New("checkout session not found")

// SessionStatus is the payment state of a checkout session.
type SessionStatus string

const (
	StatusOpen     SessionStatus = "open"
	StatusComplete SessionStatus = "complete"
	StatusExpired  SessionStatus = "expired"
)

// LineItem is one priced row on the hosted checkout page.
type LineItem struct {
	Name     string       `json:"name"`
	Amount   models.Money `json:"amount"`
	Quantity int          `json:"quantity"`
}

// SessionRequest describes a checkout to start.
type SessionRequest struct {
	OrderID       string     `json:"orderId"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	LineItems     []LineItem `json:"lineItems"`
	Currency      string     `json:"currency"`
	SuccessURL    string     `json:"successUrl"`
	CancelURL     string     `json:"cancelUrl"`
}

// Session is a hosted checkout session.
type Session struct {
	ID          string        `json:"id"`
	URL         string        `json:"url,omitempty"`
	Status      SessionStatus `json:"status,omitempty"`
	OrderID     string        `json:"orderId,omitempty"`
	AmountTotal models.Money  `json:"amountTotal"`
}

// Client is a payment gateway client authenticated with a secret API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateSession starts a hosted checkout and returns its id and redirect URL.
func (c *Client) CreateSession(ctx context.Context, sr SessionRequest) (*Session, error) {
	if len(sr.LineItems) == 0 {
		return nil, errors.New("checkout session needs at least one line item")
	}
	if sr.Currency == "" {
		sr.Currency = "gbp"
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	var s Session
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", bytes.NewReader(body), &s); err != nil {
		return nil, err
	}
	if s.ID == "" || s.URL == "" {
		return nil, errors.New("payment gateway returned an incomplete session")
	}
	return &s, nil
}

// GetSession looks up a checkout session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment gateway error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// LineItemsFor turns cart lines into checkout rows, one per box plus one
// shipping row per box.
func LineItemsFor(items []models.LineItem) []LineItem {
	out := make([]LineItem, 0, len(items)*2)
	for _, li := range items {
		out = append(out, LineItem{
			Name:     fmt.Sprintf("%s (%s)", li.Plan.Name, li.DeliveryDays),
			Amount:   li.Breakdown.Total - li.Breakdown.Shipping,
			Quantity: 1,
		})
		if li.Breakdown.Shipping > 0 {
			out = append(out, LineItem{Name: "Delivery", Amount: li.Breakdown.Shipping, Quantity: 1})
		}
	}
	return out
}
