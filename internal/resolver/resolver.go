// Package resolver determines whether a destination record already
// exists for a source record, keyed by the external identifier carried
// in destination metadata. The lookup is read-only; the engine keeps no
// persistent link store of its own.
package resolver

import (
	"context"
	"sort"

	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
)

// Searcher is the read-only destination query the resolver needs.
type Searcher interface {
	SearchByExternalID(ctx context.Context, externalID string) ([]catalog.Product, error)
}

// Resolver resolves external identifiers to destination product ids.
type Resolver struct {
	searcher Searcher
}

// New creates a resolver over the given destination search.
func New(searcher Searcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// Resolve returns the destination product id linked to externalID, with
// found=false when no destination record claims it. More than one
// claiming record is a data-integrity fault: the resolver fails with a
// duplicate-link error rather than guessing, so no duplicate is ever
// silently overwritten.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (id string, found bool, err error) {
	products, err := r.searcher.SearchByExternalID(ctx, externalID)
	if err != nil {
		return "", false, err
	}

	switch len(products) {
	case 0:
		return "", false, nil
	case 1:
		return products[0].ID, true, nil
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)

	logging.FromContext(ctx).Warn().
		Str("external_id", externalID).
		Strs("product_ids", ids).
		Msg("Multiple destination products claim the same external id")

	return "", false, &errors.DuplicateLinkError{ExternalID: externalID, ProductIDs: ids}
}
