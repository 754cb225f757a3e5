// Package mapper transforms source products into destination-shaped
// upsert payloads. The transformation is a pure function: no I/O, no side
// effects, and the same input always yields the same payload.
package mapper

import (
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/constants"
	"github.com/suprameds/shopsync/pkg/errors"
)

// minorUnitFactor converts a decimal price into integer minor currency
// units (e.g. rupees to paise, dollars to cents).
var minorUnitFactor = decimal.NewFromInt(100)

// Mapper holds the static mapping configuration shared by every record
// of a run.
type Mapper struct {
	// Currency is the currency code attached to variant prices.
	Currency string
}

// New creates a mapper with the given price currency.
func New(currency string) *Mapper {
	if currency == "" {
		currency = constants.DefaultCurrency
	}
	return &Mapper{Currency: currency}
}

// Map converts a source product into an upsert payload. It fails with an
// invalid-record error for any field that cannot be normalized; the
// orchestrator treats that as a per-record skip.
func (m *Mapper) Map(p catalog.SourceProduct) (*catalog.UpsertPayload, error) {
	if p.ExternalID == "" {
		return nil, errors.NewInvalidRecordError("", "external_id", "missing identifier")
	}
	if p.Price.IsNegative() {
		return nil, errors.NewInvalidRecordError(p.ExternalID, "price", "must be non-negative")
	}
	if p.Quantity < 0 {
		return nil, errors.NewInvalidRecordError(p.ExternalID, "quantity", "must be non-negative")
	}

	// Round-half-even into integer minor units; no floating point
	// reaches the payload.
	amount := p.Price.Mul(minorUnitFactor).RoundBank(0).IntPart()

	status := catalog.StatusDraft
	if p.Sellable {
		status = catalog.StatusPublished
	}

	return &catalog.UpsertPayload{
		Title:       p.Name,
		Handle:      Handle(p.Name, p.ExternalID),
		Description: p.Description,
		Status:      status,
		Options: []catalog.ProductOption{
			{Title: "Default", Values: []string{"Standard"}},
		},
		Variants: []catalog.Variant{
			{
				Title: "Standard",
				SKU:   SKU(p.Code, p.ExternalID),
				// Fractional stock truncates toward zero.
				InventoryQuantity: int64(p.Quantity),
				Prices: []catalog.Price{
					{Amount: amount, CurrencyCode: m.Currency},
				},
			},
		},
		Metadata: map[string]any{
			constants.ExternalIDKey: p.ExternalID,
		},
	}, nil
}

// Handle derives a URL-safe slug from a product title: lower-cased,
// whitespace runs collapsed to a single hyphen, everything outside
// [a-z0-9-] stripped. An empty result falls back to a slug derived from
// the external identifier, so the handle is always non-empty.
func Handle(title, externalID string) string {
	if slug := slugify(title); slug != "" {
		return slug
	}
	return "product-" + slugify(externalID)
}

// SKU returns the source product code when present, or a synthesized
// identifier-based SKU so every variant has a non-empty SKU.
func SKU(code, externalID string) string {
	if code != "" {
		return code
	}
	return "SRC-" + externalID
}

// foldDiacritics strips combining marks so accented titles keep their
// base letters instead of losing them entirely.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify lower-cases s, turns whitespace runs into single hyphens, and
// drops every rune outside [a-z0-9-], collapsing repeated hyphens.
func slugify(s string) string {
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}

	var b []rune
	pendingHyphen := false

	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' {
			pendingHyphen = len(b) > 0
			continue
		}
		r = unicode.ToLower(r)
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			continue
		}
		if pendingHyphen {
			b = append(b, '-')
			pendingHyphen = false
		}
		b = append(b, r)
	}
	return string(b)
}

// FormatAmount renders a minor-unit amount as a decimal string, used for
// logging and the human-readable report.
func FormatAmount(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
