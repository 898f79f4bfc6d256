package address

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeLookup echoes the query back as a single suggestion.
type fakeLookup struct {
	calls   atomic.Int32
	started chan string
	release chan struct{}
}

func (f *fakeLookup) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- query
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []Suggestion{{ID: query, Line1: query}}, nil
}

func waitForGen(t *testing.T, d *Debouncer, gen uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.gen >= gen
	}, time.Second, time.Millisecond)
}

func TestDebouncerSingleCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &fakeLookup{}
	d := NewDebouncer(lookup, 10*time.Millisecond)

	got, err := d.Suggest(context.Background(), "SW1A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SW1A", got[0].ID)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestDebouncerSupersedesPendingCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &fakeLookup{}
	d := NewDebouncer(lookup, 50*time.Millisecond)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = d.Suggest(context.Background(), "SW1")
	}()
	waitForGen(t, d, 1)

	got, err := d.Suggest(context.Background(), "SW1A 1AA")
	wg.Wait()

	assert.ErrorIs(t, firstErr, ErrSuperseded)
	require.NoError(t, err)
	assert.Equal(t, "SW1A 1AA", got[0].ID)
	assert.Equal(t, int32(1), lookup.calls.Load(), "only the latest query is looked up")
}

func TestDebouncerSupersedesInFlightLookup(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := &fakeLookup{started: make(chan string, 2), release: make(chan struct{})}
	d := NewDebouncer(lookup, time.Millisecond)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = d.Suggest(context.Background(), "SW1")
	}()
	assert.Equal(t, "SW1", <-lookup.started)

	done := make(chan error, 1)
	go func() {
		_, err := d.Suggest(context.Background(), "SW1A")
		done <- err
	}()
	assert.Equal(t, "SW1A", <-lookup.started)
	wg.Wait()
	assert.ErrorIs(t, firstErr, ErrSuperseded)

	close(lookup.release)
	assert.NoError(t, <-done)
}

func TestDebouncerContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDebouncer(&fakeLookup{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Suggest(ctx, "SW1A")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPLookup(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "key-1", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "10 Downing", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"suggestions":[{"id":"a1","line1":"10 Downing Street","town":"London","postcode":"SW1A 2AA"}]}`))
	}))
	defer server.Close()

	l := NewHTTPLookup(server.URL, "key-1", 50, 5*time.Second)

	got, err := l.Suggest(context.Background(), " 10 Downing ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SW1A 2AA", got[0].Postcode)

	short, err := l.Suggest(context.Background(), "SW")
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.Equal(t, int32(1), hits.Load(), "short queries are not sent")
}
