package medusa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprameds/shopsync/internal/transport"
	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
)

func payload(externalID, title string) *catalog.UpsertPayload {
	return &catalog.UpsertPayload{
		Title:    title,
		Handle:   "handle-" + externalID,
		Status:   catalog.StatusPublished,
		Metadata: map[string]any{"external_id": externalID},
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "jwt-test-token",
		transport.WithBackoff(time.Millisecond, 5*time.Millisecond),
		transport.WithRateLimit(0))
}

func TestSearchByExternalID(t *testing.T) {
	var gotQuery, gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("metadata[external_id]")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"products": []map[string]any{
				{"id": "prod_1", "handle": "paracetamol-500mg", "metadata": map[string]any{"external_id": "42"}},
			},
			"count": 1,
		})
	}))

	products, err := c.SearchByExternalID(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "42", gotQuery)
	assert.Equal(t, "Bearer jwt-test-token", gotAuth)
	require.Len(t, products, 1)
	assert.Equal(t, "prod_1", products[0].ID)
	assert.Equal(t, "42", products[0].ExternalID())
}

func TestAccessTokenTravelsInDedicatedHeader(t *testing.T) {
	var gotAccessToken, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccessToken = r.Header.Get("x-medusa-access-token")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"products": []map[string]any{}, "count": 0})
	}))
	defer srv.Close()

	c := New(srv.URL, "sk_live_secret", transport.WithRateLimit(0))
	err := c.Ping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "sk_live_secret", gotAccessToken)
	assert.Empty(t, gotAuth)
}

func TestCreateReturnsProductID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/products", r.URL.Path)

		var body catalog.UpsertPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.ExternalID())

		_ = json.NewEncoder(w).Encode(map[string]any{
			"product": map[string]any{"id": "prod_new"},
		})
	}))

	id, err := c.Create(context.Background(), payload("42", "Paracetamol 500mg"))

	require.NoError(t, err)
	assert.Equal(t, "prod_new", id)
}

func TestUpdateTargetsProductPath(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"product": map[string]any{"id": "prod_1"}})
	}))

	err := c.Update(context.Background(), "prod_1", payload("42", "Paracetamol 500mg"))

	require.NoError(t, err)
	assert.Equal(t, "/admin/products/prod_1", gotPath)
}

func TestCreateConflict(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"explicit 409", http.StatusConflict, `{"message":"handle taken"}`},
		{"duplicate 422", http.StatusUnprocessableEntity, `{"message":"Product with handle paracetamol-500mg already exists"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.Create(context.Background(), payload("42", "Paracetamol 500mg"))

			require.Error(t, err)
			assert.True(t, errors.IsConflict(err), "expected conflict, got %v", err)
			assert.False(t, errors.IsFatal(err))
		})
	}
}

func TestUnauthorizedIsFatal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Create(context.Background(), payload("42", "X"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationAuth))
	assert.True(t, errors.IsFatal(err))
}

func TestTransientFailureRecovers(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"product": map[string]any{"id": "prod_1"}})
	}))

	id, err := c.Create(context.Background(), payload("42", "X"))

	require.NoError(t, err)
	assert.Equal(t, "prod_1", id)
	assert.Equal(t, 4, calls)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"products": []any{}, "count": 0})
	}))
	assert.NoError(t, c.Ping(context.Background()))
}
