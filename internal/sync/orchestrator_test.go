package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprameds/shopsync/internal/executor"
	"github.com/suprameds/shopsync/internal/resolver"
	"github.com/suprameds/shopsync/pkg/catalog"
	"github.com/suprameds/shopsync/pkg/errors"
	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// fakeReader serves a fixed record slice, restartable like the real one.
type fakeReader struct {
	records []catalog.SourceRecord
	pos     int
	nextErr error
}

func (f *fakeReader) Next(_ context.Context) (catalog.SourceRecord, bool, error) {
	if f.nextErr != nil {
		return catalog.SourceRecord{}, false, f.nextErr
	}
	if f.pos >= len(f.records) {
		return catalog.SourceRecord{}, false, nil
	}
	rec := f.records[f.pos]
	f.pos++
	return rec, true, nil
}

func (f *fakeReader) Reset() { f.pos = 0 }

// fakeStore is an in-memory destination: it backs both the resolver's
// search and the executor's writes, so runs against it behave like runs
// against a real catalog.
type fakeStore struct {
	mu       stdsync.Mutex
	products map[string]catalog.Product
	seq      int
	creates  int
	updates  int

	createErr map[string]error // keyed by external id
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[string]catalog.Product{}, createErr: map[string]error{}}
}

func (f *fakeStore) SearchByExternalID(_ context.Context, externalID string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Product
	for _, p := range f.products {
		if p.ExternalID() == externalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, payload *catalog.UpsertPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[payload.ExternalID()]; err != nil {
		return "", err
	}
	f.creates++
	f.seq++
	id := fmt.Sprintf("prod_%d", f.seq)
	f.products[id] = catalog.Product{ID: id, Handle: payload.Handle, Metadata: payload.Metadata}
	return id, nil
}

func (f *fakeStore) Update(_ context.Context, id string, payload *catalog.UpsertPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return errors.NewAPIError("destination", 404, "/admin/products/"+id, "not found")
	}
	f.updates++
	f.products[id] = catalog.Product{ID: id, Handle: payload.Handle, Metadata: payload.Metadata}
	return nil
}

func record(id, name string, price float64, qty float64) catalog.SourceRecord {
	return catalog.SourceRecord{Product: catalog.SourceProduct{
		ExternalID: id,
		Name:       name,
		Price:      decimal.NewFromFloat(price),
		Quantity:   qty,
		Sellable:   true,
	}}
}

func newOrchestrator(reader Reader, store *fakeStore, opts ...syncpkg.Option) *Orchestrator {
	return New(reader, resolver.New(store), executor.New(store, false), opts...)
}

func TestRunCreatesSkipsAndReports(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "Paracetamol 500mg", 19.995, 12),
		record("2", "Ibuprofen 200mg", -1, 5), // negative price: skip
		record("3", "Vitamin C", 5.50, 100),
	}}
	store := newFakeStore()
	o := newOrchestrator(reader, store)

	report, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.Aborted)

	require.Len(t, report.Skips, 1)
	assert.Equal(t, "2", report.Skips[0].ExternalID)
	assert.Contains(t, report.Skips[0].Reason, "price")
}

func TestSecondRunIsIdempotent(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "Paracetamol 500mg", 19.995, 12),
		record("2", "Vitamin C", 5.50, 100),
	}}
	store := newFakeStore()

	first, err := newOrchestrator(reader, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	// Unchanged source: the second run resolves everything to updates.
	second, err := newOrchestrator(reader, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 2, store.creates, "no additional creates on re-run")
}

// payloadRecorder captures the payloads the pipeline hands to the
// destination stage.
type payloadRecorder struct {
	payloads []*catalog.UpsertPayload
}

func (u *payloadRecorder) Upsert(_ context.Context, _ string, _ bool, payload *catalog.UpsertPayload) (executor.Outcome, error) {
	u.payloads = append(u.payloads, payload)
	return executor.Outcome{Op: syncpkg.OpCreated, ProductID: "prod_1"}, nil
}

func TestConfiguredCurrencyReachesPayloads(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "Paracetamol 500mg", 19.995, 12),
	}}
	upserter := &payloadRecorder{}

	o := New(reader, resolver.New(newFakeStore()), upserter, syncpkg.WithCurrency("usd"))
	_, err := o.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, upserter.payloads, 1)
	prices := upserter.payloads[0].Variants[0].Prices
	require.Len(t, prices, 1)
	assert.Equal(t, "usd", prices[0].CurrencyCode)
	assert.Equal(t, int64(2000), prices[0].Amount)
}

func TestSchemaTombstoneCountsAsFailed(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "Paracetamol 500mg", 10, 1),
		{Err: &errors.SchemaError{ExternalID: "9", Field: "name"}},
	}}
	store := newFakeStore()

	report, err := newOrchestrator(reader, store).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "9", report.Failures[0].ExternalID)
}

func TestDuplicateLinkRecordedAndRunContinues(t *testing.T) {
	store := newFakeStore()
	// Two destination products independently claim external id 42.
	store.products["prod_a"] = catalog.Product{ID: "prod_a", Metadata: map[string]any{"external_id": "42"}}
	store.products["prod_b"] = catalog.Product{ID: "prod_b", Metadata: map[string]any{"external_id": "42"}}

	reader := &fakeReader{records: []catalog.SourceRecord{
		record("42", "Ambiguous", 10, 1),
		record("43", "Fine", 10, 1),
	}}

	report, err := newOrchestrator(reader, store).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "42", report.Failures[0].ExternalID)
	// Neither duplicate was overwritten.
	assert.Equal(t, 0, store.updates)
}

func TestConflictRecordedAndRunContinues(t *testing.T) {
	store := newFakeStore()
	store.createErr["1"] = errors.NewAPIError("destination", 409, "/admin/products", "handle taken")

	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "Conflicted", 10, 1),
		record("2", "Fine", 10, 1),
	}}

	report, err := newOrchestrator(reader, store).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0].Reason, "handle taken")
}

func TestDestinationAuthFailureAbortsRun(t *testing.T) {
	store := newFakeStore()
	store.createErr["1"] = errors.NewAPIError("destination", 401, "/admin/products", "unauthorized")

	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "First", 10, 1),
		record("2", "Never reached", 10, 1),
	}}
	o := newOrchestrator(reader, store)

	report, err := o.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationAuth))
	assert.Equal(t, StateAborted, o.State())
	assert.True(t, report.Aborted)
	// No record after the fatal error was attempted.
	assert.Equal(t, 0, store.creates)
	assert.Equal(t, 0, report.Created)
}

func TestSourceFailureAbortsRun(t *testing.T) {
	reader := &fakeReader{nextErr: errors.NewSourceError("search_read", "http://erp/jsonrpc", "unreachable", nil)}
	store := newFakeStore()
	o := newOrchestrator(reader, store)

	report, err := o.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	assert.True(t, report.Aborted)
	assert.Contains(t, report.AbortReason, "unreachable")
}

func TestCancellationStopsNewRecords(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "A", 10, 1),
		record("2", "B", 10, 1),
	}}
	store := newFakeStore()
	o := newOrchestrator(reader, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Run(ctx)

	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.True(t, report.Aborted)
	assert.Equal(t, 0, report.Total())
}

func TestDryRunNeverTouchesDestination(t *testing.T) {
	reader := &fakeReader{records: []catalog.SourceRecord{
		record("1", "A", 10, 1),
	}}
	store := newFakeStore()
	o := New(reader, resolver.New(store), executor.New(store, true),
		syncpkg.WithDryRun(true))

	report, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, store.creates)
}

func TestConcurrentRunCounts(t *testing.T) {
	var records []catalog.SourceRecord
	for i := 1; i <= 20; i++ {
		records = append(records, record(fmt.Sprintf("%d", i), fmt.Sprintf("Product %d", i), 10, 1))
	}
	reader := &fakeReader{records: records}
	store := newFakeStore()

	report, err := newOrchestrator(reader, store, syncpkg.WithConcurrency(4)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 20, report.Created)
	assert.Equal(t, 20, store.creates)
}

func TestConcurrentFatalAborts(t *testing.T) {
	var records []catalog.SourceRecord
	for i := 1; i <= 10; i++ {
		records = append(records, record(fmt.Sprintf("%d", i), fmt.Sprintf("Product %d", i), 10, 1))
	}
	reader := &fakeReader{records: records}
	store := newFakeStore()
	store.createErr["5"] = errors.NewAPIError("destination", 401, "/admin/products", "unauthorized")

	report, err := newOrchestrator(reader, store, syncpkg.WithConcurrency(3)).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDestinationAuth))
	assert.True(t, report.Aborted)
}

// trackingUpserter flags any same-identifier overlap across workers.
type trackingUpserter struct {
	mu       stdsync.Mutex
	inflight map[string]int
	overlap  bool
}

func (u *trackingUpserter) Upsert(_ context.Context, _ string, _ bool, payload *catalog.UpsertPayload) (executor.Outcome, error) {
	id := payload.ExternalID()

	u.mu.Lock()
	u.inflight[id]++
	if u.inflight[id] > 1 {
		u.overlap = true
	}
	u.mu.Unlock()

	time.Sleep(time.Millisecond)

	u.mu.Lock()
	u.inflight[id]--
	u.mu.Unlock()

	return executor.Outcome{Op: syncpkg.OpCreated, ProductID: "prod_" + id}, nil
}

func TestSameExternalIDNeverRacesItself(t *testing.T) {
	// Every id appears several times in the stream; partitioning must
	// keep all occurrences on one worker.
	var records []catalog.SourceRecord
	for round := 0; round < 4; round++ {
		for i := 1; i <= 5; i++ {
			records = append(records, record(fmt.Sprintf("%d", i), fmt.Sprintf("Product %d", i), 10, 1))
		}
	}
	reader := &fakeReader{records: records}
	store := newFakeStore()
	upserter := &trackingUpserter{inflight: map[string]int{}}

	o := New(reader, resolver.New(store), upserter, syncpkg.WithConcurrency(4))
	report, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 20, report.Created)
	assert.False(t, upserter.overlap, "same external id ran concurrently with itself")
}

func TestPartitionIsDeterministic(t *testing.T) {
	rec := record("42", "X", 1, 1)
	first := partition(rec, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, partition(rec, 4))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 4)
}
