// Package executor performs the create-or-update against the destination
// once identity has been resolved. In dry-run mode it simulates the
// would-be operation without mutating the destination.
package executor

import (
	"context"

	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/logging"
	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// Destination is the mutating surface of the destination client. Retry,
// backoff, and rate limiting live underneath it in the transport layer.
type Destination interface {
	Create(ctx context.Context, payload *catalog.UpsertPayload) (string, error)
	Update(ctx context.Context, id string, payload *catalog.UpsertPayload) error
}

// Outcome is the result of a single upsert.
type Outcome struct {
	Op        syncpkg.Operation
	ProductID string
}

// Executor drives destination writes for one run.
type Executor struct {
	dest   Destination
	dryRun bool
}

// New creates an executor. With dryRun set, Upsert only reports what it
// would have done.
func New(dest Destination, dryRun bool) *Executor {
	return &Executor{dest: dest, dryRun: dryRun}
}

// Upsert creates the product when no destination id resolved, and
// updates it in place otherwise. Both paths are idempotent at the
// payload level: re-running with an unchanged payload does not change
// the destination's observable state beyond timestamps.
func (e *Executor) Upsert(ctx context.Context, destID string, found bool, payload *catalog.UpsertPayload) (Outcome, error) {
	log := logging.FromContext(ctx)

	if e.dryRun {
		op := syncpkg.OpCreated
		if found {
			op = syncpkg.OpUpdated
		}
		log.Info().
			Str("external_id", payload.ExternalID()).
			Str("op", string(op)).
			Str("handle", payload.Handle).
			Msg("Dry run: skipping destination write")
		return Outcome{Op: op, ProductID: destID}, nil
	}

	if !found {
		id, err := e.dest.Create(ctx, payload)
		if err != nil {
			return Outcome{Op: syncpkg.OpFailed}, err
		}
		return Outcome{Op: syncpkg.OpCreated, ProductID: id}, nil
	}

	if err := e.dest.Update(ctx, destID, payload); err != nil {
		return Outcome{Op: syncpkg.OpFailed}, err
	}
	return Outcome{Op: syncpkg.OpUpdated, ProductID: destID}, nil
}
