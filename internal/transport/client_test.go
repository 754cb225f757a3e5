package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprameds/shopsync/pkg/errors"
)

func fastClient(system string, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithBackoff(time.Millisecond, 5*time.Millisecond)}, opts...)
	return New(system, opts...)
}

func TestRetriesTransientFailuresThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	c := fastClient("destination")
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(4), calls.Load())
}

func TestExhaustedRetriesReturnUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastClient("destination")
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationUnavailable))
	// Initial attempt plus MaxRetries
	assert.Equal(t, int32(4), calls.Load())
}

func TestPersistentRateLimitingClassifiesAsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := fastClient("destination")
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationUnavailable))
	// The underlying 429 stays visible through the wrapper.
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	assert.Equal(t, int32(4), calls.Load())

	src := fastClient("source")
	err = src.GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
}

func TestUnauthorizedIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := fastClient("destination")
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationAuth))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := fastClient("destination")
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNetworkErrorClassifiedBySystem(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	src := fastClient("source", WithMaxRetries(1))
	err := src.GetJSON(context.Background(), url, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))

	dst := fastClient("destination", WithMaxRetries(1))
	err = dst.GetJSON(context.Background(), url, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationUnavailable))
}

func TestBearerAuthApplied(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := fastClient("destination", WithAuthenticator(&BearerAuth{Token: "sk_test"}))
	err := c.GetJSON(context.Background(), srv.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test", header)
}

func TestCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("destination", WithBackoff(time.Minute, time.Minute))
	err := c.GetJSON(ctx, srv.URL, nil, nil)
	require.Error(t, err)
}

func TestBackoffDelayBounds(t *testing.T) {
	base := 100 * time.Millisecond
	ceiling := time.Second

	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(attempt, base, ceiling)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, ceiling)
	}

	// First attempt stays within the base window.
	d := backoffDelay(0, base, ceiling)
	assert.GreaterOrEqual(t, d, base/2)
	assert.LessOrEqual(t, d, base)
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("5")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)

	_, ok = parseRetryAfter("soon")
	assert.False(t, ok)

	_, ok = parseRetryAfter("-1")
	assert.False(t, ok)
}
