package catalog

// Status is the publication status of a destination product.
type Status string

const (
	// StatusPublished marks a product as live in the destination catalog.
	StatusPublished Status = "published"
	// StatusDraft marks a product as hidden in the destination catalog.
	StatusDraft Status = "draft"
)

// UpsertPayload is the destination-shaped body for a product create or
// update. It is derived from exactly one SourceProduct per sync pass and
// never persisted by the engine. The JSON tags match the destination's
// admin product API.
type UpsertPayload struct {
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Options     []ProductOption `json:"options"`
	Variants    []Variant       `json:"variants"`

	// Metadata carries the external identifier for back-reference.
	// Invariant: every payload is traceable to exactly one SourceProduct.
	Metadata map[string]any `json:"metadata"`
}

// ProductOption is an option definition on a destination product.
type ProductOption struct {
	Title  string   `json:"title"`
	Values []string `json:"values,omitempty"`
}

// Variant is a variant definition on a destination product.
type Variant struct {
	Title             string  `json:"title"`
	SKU               string  `json:"sku"`
	InventoryQuantity int64   `json:"inventory_quantity"`
	Prices            []Price `json:"prices"`
}

// Price is a variant price in integer minor currency units. Monetary
// amounts are converted with round-half-even before they reach this
// struct; no floating point is carried into the payload.
type Price struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// ExternalID returns the source external identifier the payload carries
// in its metadata.
func (p *UpsertPayload) ExternalID() string {
	if p.Metadata == nil {
		return ""
	}
	if id, ok := p.Metadata["external_id"].(string); ok {
		return id
	}
	return ""
}
