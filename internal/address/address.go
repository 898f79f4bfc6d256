// Package address provides postcode/address autocomplete for the
// delivery details form.
package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinQueryLength is the shortest query sent to the lookup service.
const MinQueryLength = 3

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	ID       string `json:"id"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Town     string `json:"town"`
	Postcode string `json:"postcode"`
}

// Lookup returns address suggestions for a partial query.
type Lookup interface {
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

// HTTPLookup queries the address service over HTTP, throttled to a fixed
// request rate shared by every session.
type HTTPLookup struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPLookup creates a lookup allowing rps requests per second.
func NewHTTPLookup(baseURL, apiKey string, rps float64, timeout time.Duration) *HTTPLookup {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPLookup{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type suggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (l *HTTPLookup) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return nil, nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("address lookup throttled: %w", err)
	}

	u := l.baseURL + "/autocomplete?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if l.apiKey != "" {
		req.Header.Set("X-Api-Key", l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address lookup error: status %d", resp.StatusCode)
	}

	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Suggestions, nil
}

// ErrSuperseded is returned to a Suggest call overtaken by a later one.
var ErrSuperseded = errors.New("superseded by a newer query")

// DefaultDebounce is the quiet period before a query is sent.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer sits in front of a Lookup for one customer. Only the latest
// query is looked up and only its result is returned; older calls get
// ErrSuperseded as soon as a newer one arrives.
type Debouncer struct {
	lookup Lookup
	delay  time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewDebouncer(lookup Lookup, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{lookup: lookup, delay: delay}
}

// Suggest waits out the debounce interval and then looks up query unless a
// newer call arrived in the meantime.
func (d *Debouncer) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	d.cancel = cancel
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, d.cause(ctx, gen)
	case <-timer.C:
	}

	res, err := d.lookup.Suggest(ctx, query)
	if !d.latest(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Stop supersedes any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) latest(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

func (d *Debouncer) cause(ctx context.Context, gen uint64) error {
	if !d.latest(gen) {
		return ErrSuperseded
	}
	return ctx.Err()
}
