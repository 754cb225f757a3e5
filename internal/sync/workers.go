package sync

import (
	"context"
	"hash/fnv"
	stdsync "sync"

	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// runConcurrent processes up to Concurrency records in the resolve and
// upsert stages at once. Records are partitioned across workers by their
// external identifier, so the resolver and executor never run
// concurrently with themselves for the same identifier. The partition
// is the duplicate-create guard, not a global lock. Reading stays
// sequential: the next page depends on the previous one.
func (o *Orchestrator) runConcurrent(ctx context.Context, recorder *syncpkg.Recorder) error {
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	n := o.opts.Concurrency
	queues := make([]chan catalog.SourceRecord, n)
	for i := range queues {
		queues[i] = make(chan catalog.SourceRecord)
	}

	// First fatal error wins; everything after it is wind-down.
	var fatalOnce stdsync.Once
	var fatalErr error
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancelWork()
		})
	}

	var wg stdsync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(queue <-chan catalog.SourceRecord) {
			defer wg.Done()
			for rec := range queue {
				if err := o.process(workCtx, recorder, rec); err != nil {
					abort(err)
					return
				}
			}
		}(queues[i])
	}

	// Dispatch loop: sequential reads, partitioned hand-off. On
	// cancellation no new records are started; in-flight upserts finish
	// on their own cancellation-proof context.
	var dispatchErr error
	for dispatchErr == nil {
		if workCtx.Err() != nil {
			break
		}

		rec, ok, err := o.reader.Next(workCtx)
		if err != nil {
			dispatchErr = err
			break
		}
		if !ok {
			break
		}

		select {
		case queues[partition(rec, n)] <- rec:
		case <-workCtx.Done():
			dispatchErr = nil
		}
		if workCtx.Err() != nil {
			break
		}
	}

	for _, q := range queues {
		close(q)
	}
	wg.Wait()

	if fatalErr != nil {
		return fatalErr
	}
	if dispatchErr != nil {
		return dispatchErr
	}
	if ctx.Err() != nil {
		return errors.ErrCanceled
	}
	return nil
}

// partition assigns a record to a worker by hashing its external
// identifier, keeping every occurrence of an identifier on one worker.
func partition(rec catalog.SourceRecord, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(rec.Product.ExternalID))
	return int(h.Sum32() % uint32(n))
}
