// Package sync drives the reconciliation pipeline: it pulls records from
// the source reader, maps each into an upsert payload, resolves its
// destination identity, executes the create-or-update, and aggregates
// outcomes into the run report.
package sync

import (
	"context"
	stdsync "sync"

	"github.com/suprameds/shopsync/internal/executor"
	"github.com/suprameds/shopsync/internal/mapper"
	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// Reader streams source records. Pagination is strictly sequential; the
// orchestrator is the only consumer.
type Reader interface {
	Next(ctx context.Context) (catalog.SourceRecord, bool, error)
	Reset()
}

// Resolver resolves an external identifier to the destination product id
// it is linked to, if any.
type Resolver interface {
	Resolve(ctx context.Context, externalID string) (id string, found bool, err error)
}

// Upserter executes the create-or-update for one resolved record.
type Upserter interface {
	Upsert(ctx context.Context, destID string, found bool, payload *catalog.UpsertPayload) (executor.Outcome, error)
}

// Orchestrator runs the sync pipeline. Construct one per run.
type Orchestrator struct {
	reader   Reader
	mapper   *mapper.Mapper
	resolver Resolver
	upserter Upserter
	opts     *syncpkg.Options

	mu    stdsync.Mutex
	state State
}

// New creates an orchestrator over the pipeline stages. The mapper is
// built from the run options so the configured currency flows into every
// payload.
func New(reader Reader, r Resolver, u Upserter, opts ...syncpkg.Option) *Orchestrator {
	o := &Orchestrator{
		reader:   reader,
		resolver: r,
		upserter: u,
		opts:     syncpkg.Defaults().Apply(opts...),
		state:    StateInit,
	}
	o.mapper = mapper.New(o.opts.Currency)
	return o
}

// State returns the run's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(ctx context.Context, s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	logging.FromContext(ctx).Debug().Str("state", s.String()).Msg("Run state changed")
}

// Run executes the sync and returns the finalized report. The report is
// returned even when the run aborts, reflecting every outcome completed
// before the fatal error. Per-record failures never stop the run; only
// classified-fatal errors (bad credentials, unreachable source) do.
func (o *Orchestrator) Run(ctx context.Context) (*syncpkg.RunReport, error) {
	if err := o.opts.Validate(); err != nil {
		return nil, err
	}

	recorder := syncpkg.NewRecorder(o.opts.DryRun)
	ctx = logging.WithRunID(ctx, recorder.RunID())
	log := logging.FromContext(ctx)

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	log.Info().
		Bool("dry_run", o.opts.DryRun).
		Int("concurrency", o.opts.Concurrency).
		Str("currency", o.opts.Currency).
		Msg("Starting sync run")

	o.setState(ctx, StateReading)
	o.reader.Reset()

	var runErr error
	if o.opts.Concurrency > 1 {
		runErr = o.runConcurrent(ctx, recorder)
	} else {
		runErr = o.runSequential(ctx, recorder)
	}

	o.setState(ctx, StateFinalizing)
	if runErr != nil {
		recorder.Abort(runErr.Error())
	}

	report := recorder.Finalize()
	if runErr != nil {
		o.setState(ctx, StateAborted)
		log.Error().Err(runErr).Str("summary", report.Summary()).Msg("Sync run aborted")
		return report, runErr
	}

	o.setState(ctx, StateDone)
	log.Info().Str("summary", report.Summary()).Msg("Sync run finished")
	return report, nil
}

// runSequential flows one record at a time through the pipeline, which
// keeps per-record error attribution simple and avoids rate-limit storms.
func (o *Orchestrator) runSequential(ctx context.Context, recorder *syncpkg.Recorder) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.ErrCanceled
		}

		rec, ok, err := o.reader.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := o.process(ctx, recorder, rec); err != nil {
			return err
		}
	}
}

// process takes one record through map, resolve, and upsert, recording
// its outcome. A returned error is always classified fatal.
func (o *Orchestrator) process(ctx context.Context, recorder *syncpkg.Recorder, rec catalog.SourceRecord) error {
	if rec.Err != nil {
		// Schema tombstone from the reader.
		recorder.Failed(schemaExternalID(rec.Err), rec.Err.Error())
		return nil
	}

	externalID := rec.Product.ExternalID
	ctx = logging.WithExternalID(ctx, externalID)
	log := logging.FromContext(ctx)

	payload, err := o.mapper.Map(rec.Product)
	if err != nil {
		log.Warn().Err(err).Msg("Record skipped")
		recorder.Skipped(externalID, err.Error())
		return nil
	}

	destID, found, err := o.resolver.Resolve(ctx, externalID)
	if err != nil {
		if errors.IsFatal(err) {
			return err
		}
		log.Warn().Err(err).Msg("Identity resolution failed")
		recorder.Failed(externalID, err.Error())
		return nil
	}

	// An upsert that has started is never aborted mid-write: it runs on
	// a context that survives cancellation, bounded by the transport's
	// own per-request timeout.
	outcome, err := o.upserter.Upsert(context.WithoutCancel(ctx), destID, found, payload)
	if err != nil {
		if errors.IsFatal(err) {
			return err
		}
		log.Warn().Err(err).Msg("Upsert failed")
		recorder.Failed(externalID, err.Error())
		return nil
	}

	switch outcome.Op {
	case syncpkg.OpCreated:
		log.Info().Str("product_id", outcome.ProductID).Str("amount", priceOf(payload)).Msg("Created product")
		recorder.Created(externalID)
	case syncpkg.OpUpdated:
		log.Info().Str("product_id", outcome.ProductID).Str("amount", priceOf(payload)).Msg("Updated product")
		recorder.Updated(externalID)
	}
	return nil
}

// schemaExternalID pulls the external id out of a tombstone error when
// the reader managed to decode that much.
func schemaExternalID(err error) string {
	var se *errors.SchemaError
	if errors.As(err, &se) {
		return se.ExternalID
	}
	return ""
}

// priceOf renders the payload's first variant price for logging.
func priceOf(p *catalog.UpsertPayload) string {
	if len(p.Variants) == 0 || len(p.Variants[0].Prices) == 0 {
		return ""
	}
	return mapper.FormatAmount(p.Variants[0].Prices[0].Amount)
}
