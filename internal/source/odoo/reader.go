package odoo

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
)

// productModel is the source model holding sellable products.
const productModel = "product.product"

// productFields are the fields requested per record.
var productFields = []string{"name", "list_price", "default_code", "qty_available", "description", "sale_ok"}

// sellableDomain pushes the sellable filter to the source system.
var sellableDomain = []any{[]any{"sale_ok", "=", true}}

// Reader streams sellable products from the source in pages. The stream
// is finite and restartable: Reset re-issues it from offset 0. A record
// that cannot be decoded yields a tombstone SourceRecord rather than
// ending the stream.
type Reader struct {
	client   *Client
	pageSize int

	offset int
	buf    []catalog.SourceRecord
	done   bool
}

// NewReader creates a paginated reader over the client's product records.
func NewReader(client *Client, pageSize int) *Reader {
	return &Reader{client: client, pageSize: pageSize}
}

// Reset restarts the stream from offset 0.
func (r *Reader) Reset() {
	r.offset = 0
	r.buf = nil
	r.done = false
}

// Next returns the next record in the stream. The second return is false
// once the stream is exhausted. A non-nil error means the source itself
// failed and the stream cannot continue.
func (r *Reader) Next(ctx context.Context) (catalog.SourceRecord, bool, error) {
	for len(r.buf) == 0 {
		if r.done {
			return catalog.SourceRecord{}, false, nil
		}
		if err := r.fetchPage(ctx); err != nil {
			return catalog.SourceRecord{}, false, err
		}
	}

	rec := r.buf[0]
	r.buf = r.buf[1:]
	return rec, true, nil
}

// fetchPage pulls the next page. A page shorter than pageSize marks the
// stream as finished.
func (r *Reader) fetchPage(ctx context.Context) error {
	raws, err := r.client.SearchRead(ctx, productModel, sellableDomain, productFields, r.offset, r.pageSize)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Debug().
		Int("offset", r.offset).
		Int("count", len(raws)).
		Msg("Fetched source page")

	for _, raw := range raws {
		r.buf = append(r.buf, decodeProduct(raw))
	}

	r.offset += len(raws)
	if len(raws) < r.pageSize {
		r.done = true
	}
	return nil
}

// decodeProduct turns a raw source record into a SourceRecord. Missing
// required fields produce a tombstone carrying a SchemaError; the
// orchestrator counts it as failed without aborting the stream.
func decodeProduct(raw map[string]any) catalog.SourceRecord {
	id, ok := asInt(raw["id"])
	if !ok {
		return catalog.SourceRecord{Err: &errors.SchemaError{Field: "id"}}
	}
	externalID := strconv.FormatInt(id, 10)

	name, ok := asString(raw["name"])
	if !ok || name == "" {
		return catalog.SourceRecord{Err: &errors.SchemaError{ExternalID: externalID, Field: "name"}}
	}

	price, ok := asFloat(raw["list_price"])
	if !ok {
		return catalog.SourceRecord{Err: &errors.SchemaError{ExternalID: externalID, Field: "list_price"}}
	}

	qty, ok := asFloat(raw["qty_available"])
	if !ok {
		return catalog.SourceRecord{Err: &errors.SchemaError{ExternalID: externalID, Field: "qty_available"}}
	}

	// Optional fields: the source encodes absent values as false.
	code, _ := asString(raw["default_code"])
	description, _ := asString(raw["description"])
	sellable := true
	if v, ok := raw["sale_ok"].(bool); ok {
		sellable = v
	}

	return catalog.SourceRecord{
		Product: catalog.SourceProduct{
			ExternalID:  externalID,
			Name:        name,
			Code:        code,
			Description: description,
			Price:       decimal.NewFromFloat(price),
			Quantity:    qty,
			Sellable:    sellable,
		},
	}
}

// asString accepts a string value; the source sends false for absent
// text fields.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat accepts a JSON number.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// asInt accepts a JSON number holding an integral id.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
