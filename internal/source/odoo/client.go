// Package odoo provides the source system client. It speaks the ERP's
// JSON-RPC surface: an authenticate call that yields a session uid, and
// execute_kw for model queries such as search_read.
package odoo

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/suprameds/shopsync/internal/transport"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
)

// Client is a session-holding client for the source ERP's JSON-RPC API.
type Client struct {
	transport *transport.Client
	endpoint  string
	db        string
	username  string
	apiKey    string

	uid    atomic.Int64
	nextID atomic.Int64
}

// New creates a source client for the ERP at baseURL. Authenticate must
// be called before any query.
func New(baseURL, db, username, apiKey string, topts ...transport.ClientOption) *Client {
	return &Client{
		transport: transport.New("source", topts...),
		endpoint:  strings.TrimRight(baseURL, "/") + "/jsonrpc",
		db:        db,
		username:  username,
		apiKey:    apiKey,
	}
}

// rpcRequest is the JSON-RPC 2.0 call envelope.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC request and unmarshals the result.
func (c *Client) call(ctx context.Context, service, method string, args []any, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.nextID.Add(1),
	}

	var resp rpcResponse
	if err := c.transport.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return err
	}

	if resp.Error != nil {
		op := service + "." + method
		if isAccessDenied(resp.Error) {
			op = "authenticate"
		}
		return errors.NewSourceError(op, c.endpoint, rpcErrorMessage(resp.Error), nil)
	}

	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return errors.NewSourceError(service+"."+method, c.endpoint, "decoding result", err)
		}
	}
	return nil
}

// Authenticate establishes a session with the source system. The ERP
// returns the user id on success and false on rejected credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	var raw json.RawMessage
	args := []any{c.db, c.username, c.apiKey, map[string]any{}}
	if err := c.call(ctx, "common", "authenticate", args, &raw); err != nil {
		return err
	}

	var uid int64
	if err := json.Unmarshal(raw, &uid); err != nil || uid == 0 {
		return errors.NewSourceError("authenticate", c.endpoint, "credentials rejected", nil)
	}

	c.uid.Store(uid)
	logging.FromContext(ctx).Debug().
		Str("endpoint", c.endpoint).
		Int64("uid", uid).
		Msg("Authenticated against source")
	return nil
}

// Authenticated reports whether a session has been established.
func (c *Client) Authenticated() bool {
	return c.uid.Load() != 0
}

// SearchRead queries model records matching domain, returning the named
// fields. Filtering is pushed to the source system so only matching
// records cross the wire.
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, offset, limit int) ([]map[string]any, error) {
	uid := c.uid.Load()
	if uid == 0 {
		return nil, errors.NewSourceError("search_read", c.endpoint, "not authenticated", nil)
	}

	kwargs := map[string]any{
		"fields": fields,
		"offset": offset,
		"limit":  limit,
		"order":  "id asc",
	}
	args := []any{c.db, uid, c.apiKey, model, "search_read", []any{domain}, kwargs}

	var records []map[string]any
	if err := c.call(ctx, "object", "execute_kw", args, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// isAccessDenied reports whether an RPC-level error is an authentication
// or authorization rejection rather than a server fault.
func isAccessDenied(e *rpcError) bool {
	msg := strings.ToLower(rpcErrorMessage(e))
	return strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "accessdenied") ||
		strings.Contains(msg, "session expired")
}

// rpcErrorMessage prefers the detailed data message over the generic one.
func rpcErrorMessage(e *rpcError) string {
	if e.Data != nil {
		if m, ok := e.Data["message"].(string); ok && m != "" {
			return m
		}
	}
	return e.Message
}
