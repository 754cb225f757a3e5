// Package medusa provides the destination commerce catalog client. It
// speaks the admin product API with a bearer credential: create, update,
// and a metadata-keyed search used for identity resolution.
package medusa

import (
	"context"
	"net/url"
	"strings"

	"github.com/suprameds/shopsync/internal/transport"
	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/constants"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
)

// Client is a bearer-authenticated client for the destination admin API.
type Client struct {
	transport *transport.Client
	baseURL   string
}

// accessTokenHeader carries long-lived admin API tokens; JWTs from an
// interactive login travel as a bearer credential instead.
const accessTokenHeader = "x-medusa-access-token"

// accessTokenPrefix marks secret API tokens issued by the admin UI.
const accessTokenPrefix = "sk_"

// New creates a destination client for the admin API at baseURL. Both
// credential kinds the admin API accepts are supported; the token's
// shape decides which header it travels in.
func New(baseURL, token string, topts ...transport.ClientOption) *Client {
	opts := append([]transport.ClientOption{
		transport.WithAuthenticator(authenticator(token)),
		transport.WithRateLimit(constants.DestinationRequestsPerSecond),
	}, topts...)

	return &Client{
		transport: transport.New("destination", opts...),
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// authenticator picks the credential mode for a token.
func authenticator(token string) transport.Authenticator {
	if strings.HasPrefix(token, accessTokenPrefix) {
		return &transport.HeaderAuth{Header: accessTokenHeader, Value: token}
	}
	return &transport.BearerAuth{Token: token}
}

// productEnvelope is the admin API's single-product response body.
type productEnvelope struct {
	Product catalog.Product `json:"product"`
}

// productListEnvelope is the admin API's list response body.
type productListEnvelope struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

// SearchByExternalID returns every destination product whose metadata
// carries the given external identifier. Read-only; duplicate handling
// is the caller's decision.
func (c *Client) SearchByExternalID(ctx context.Context, externalID string) ([]catalog.Product, error) {
	query := url.Values{}
	query.Set("metadata["+constants.ExternalIDKey+"]", externalID)
	query.Set("fields", "id,handle,status,metadata")

	var out productListEnvelope
	if err := c.transport.GetJSON(ctx, c.baseURL+"/admin/products", query, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// Create creates a destination product and returns its internal id.
func (c *Client) Create(ctx context.Context, payload *catalog.UpsertPayload) (string, error) {
	var out productEnvelope
	if err := c.transport.PostJSON(ctx, c.baseURL+"/admin/products", payload, &out); err != nil {
		return "", classifyConflict(err)
	}

	logging.FromContext(ctx).Debug().
		Str("external_id", payload.ExternalID()).
		Str("product_id", out.Product.ID).
		Msg("Created destination product")
	return out.Product.ID, nil
}

// Update updates an existing destination product in place. Re-issuing an
// unchanged payload is a no-op on the destination's observable state.
func (c *Client) Update(ctx context.Context, id string, payload *catalog.UpsertPayload) error {
	if err := c.transport.PostJSON(ctx, c.baseURL+"/admin/products/"+id, payload, nil); err != nil {
		return classifyConflict(err)
	}

	logging.FromContext(ctx).Debug().
		Str("external_id", payload.ExternalID()).
		Str("product_id", id).
		Msg("Updated destination product")
	return nil
}

// Ping verifies the credential by listing a single product.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	var out productListEnvelope
	return c.transport.GetJSON(ctx, c.baseURL+"/admin/products", query, &out)
}

// classifyConflict maps the admin API's duplicate-key validation error
// (a 422 naming an already-taken handle or SKU) onto the conflict kind.
// A plain 409 already classifies via its status code.
func classifyConflict(err error) error {
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 422 {
		msg := strings.ToLower(apiErr.Message)
		if strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate") {
			return &errors.APIError{
				System:     apiErr.System,
				StatusCode: 409,
				Endpoint:   apiErr.Endpoint,
				Message:    apiErr.Message,
				Err:        apiErr,
			}
		}
	}
	return err
}
