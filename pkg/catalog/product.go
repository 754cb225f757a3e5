// Package catalog defines the data model flowing through the sync engine:
// source products as read from the ERP, the upsert payload shaped for the
// destination commerce API, and the run report aggregating outcomes.
package catalog

import (
	"github.com/shopspring/decimal"
)

// SourceProduct is a sellable product record as read from the source
// system. It is read-only to the engine; its lifecycle is owned entirely
// by the source.
type SourceProduct struct {
	// ExternalID is the immutable, source-assigned identifier. It is
	// carried into destination metadata to link records across systems.
	ExternalID string

	// Name is the display name of the product.
	Name string

	// Code is the source's product code, used as the variant SKU when
	// present. Optional.
	Code string

	// Description is free text. Optional.
	Description string

	// Price is the unit list price in the source currency.
	Price decimal.Decimal

	// Quantity is the available stock. Some source systems report
	// fractional quantities for unit-of-measure products.
	Quantity float64

	// Sellable reports whether the source marks the product as sellable.
	Sellable bool
}

// SourceRecord is one element of the reader's stream. A record either
// carries a decoded product or a per-record schema error (a tombstone the
// orchestrator counts as failed without stopping the stream).
type SourceRecord struct {
	Product SourceProduct
	Err     error
}

// Product is a destination record as returned by the destination's
// search and create operations.
type Product struct {
	ID       string         `json:"id"`
	Handle   string         `json:"handle"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// ExternalID returns the source external identifier carried in the
// product's metadata, or "" when the product is not linked.
func (p *Product) ExternalID() string {
	if p.Metadata == nil {
		return ""
	}
	if id, ok := p.Metadata["external_id"].(string); ok {
		return id
	}
	return ""
}
