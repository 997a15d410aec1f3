package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/formulacore/internal/column"
	"github.com/leapstack-labs/formulacore/internal/config"
	"github.com/leapstack-labs/formulacore/internal/queryclient"
	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/leapstack-labs/formulacore/internal/testutil"
)

// fakeClient is a hand-rolled, call-counting queryclient.Client double.
// Every query method counts its calls so tests can assert on batching
// and dedup behaviour, not just final scalars.
type fakeClient struct {
	mu      sync.Mutex
	boards  map[string]*schema.BoardSchema
	values  map[queryclient.ResolutionKey]column.RawValue
	mirrors map[queryclient.ResolutionKey]queryclient.DeepMirrorResult

	schemaCalls           int32
	displayValueCalls     int32
	displayValueBatchCall int32
	deepMirrorCalls       int32
	multiColumnsCalls     int32
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		boards:  make(map[string]*schema.BoardSchema),
		values:  make(map[queryclient.ResolutionKey]column.RawValue),
		mirrors: make(map[queryclient.ResolutionKey]queryclient.DeepMirrorResult),
	}
}

func (f *fakeClient) Schema(_ context.Context, boardID string) (*schema.BoardSchema, error) {
	atomic.AddInt32(&f.schemaCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (f *fakeClient) DisplayValue(_ context.Context, key queryclient.ResolutionKey) (column.RawValue, bool, error) {
	atomic.AddInt32(&f.displayValueCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeClient) DisplayValueBatch(_ context.Context, boardID, columnID string, itemIDs []string) (map[string]column.RawValue, error) {
	atomic.AddInt32(&f.displayValueBatchCall, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]column.RawValue)
	for _, id := range itemIDs {
		if v, ok := f.values[queryclient.ResolutionKey{BoardID: boardID, ColumnID: columnID, ItemID: id}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeClient) DeepMirror(_ context.Context, boardID, columnID, itemID string) (queryclient.DeepMirrorResult, error) {
	atomic.AddInt32(&f.deepMirrorCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mirrors[queryclient.ResolutionKey{BoardID: boardID, ColumnID: columnID, ItemID: itemID}], nil
}

func (f *fakeClient) MultiColumnsDeep(_ context.Context, req queryclient.MultiColumnsDeepRequest) (map[queryclient.ResolutionKey]column.RawValue, error) {
	atomic.AddInt32(&f.multiColumnsCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[queryclient.ResolutionKey]column.RawValue)
	for _, col := range req.ColumnIDs {
		for _, item := range req.ItemIDs {
			k := queryclient.ResolutionKey{BoardID: req.BoardID, ColumnID: col, ItemID: item}
			if v, ok := f.values[k]; ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

func testOpts() config.Options {
	o := config.Defaults()
	o.BatchWindowMS = 5
	return o
}

func numCol(id string) *schema.ColumnDef { return &schema.ColumnDef{ID: id, Kind: schema.KindNumber} }
func textCol(id string) *schema.ColumnDef { return &schema.ColumnDef{ID: id, Kind: schema.KindText} }
func formulaCol(id, src string) *schema.ColumnDef {
	return &schema.ColumnDef{ID: id, Kind: schema.KindFormula, Formula: &schema.FormulaSettings{FormulaText: src}}
}
func mirrorCol(id, relation string, displayed []string, fn schema.AggregationFn) *schema.ColumnDef {
	return &schema.ColumnDef{ID: id, Kind: schema.KindMirror, Mirror: &schema.MirrorSettings{
		RelationColumnID: relation, DisplayedLinkedColumns: displayed, Function: fn,
	}}
}

func TestResolve_LeafNumberColumn(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"c1": numCol("c1"),
	}}
	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}] = column.RawValue{Number: 42, HasNumber: true}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "c1", "i1")
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	require.Equal(t, 42.0, n)
}

func TestResolve_MissingBoardYieldsEmptyNoError(t *testing.T) {
	client := newFakeClient()
	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "ghost", "c1", "i1")
	require.NoError(t, err)
	require.True(t, v.IsEmpty())
}

func TestResolve_MissingColumnYieldsEmptyNoError(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{}}
	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "ghost-col", "i1")
	require.NoError(t, err)
	require.True(t, v.IsEmpty())
}

func TestResolve_SimpleFormulaNoDependencies(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"f1": formulaCol("f1", `1 + 2`),
	}}
	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "f1", "i1")
	require.NoError(t, err)
	require.Equal(t, "3", v.Display())
	require.EqualValues(t, 0, client.displayValueCalls, "a dependency-free formula must issue no display-value probe")
}

func TestResolve_FormulaWithSimpleDependencyUsesCoordinator(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"f1": formulaCol("f1", `{c1} + 1`),
		"c1": numCol("c1"),
	}}
	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}] = column.RawValue{Number: 9, HasNumber: true}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "f1", "i1")
	require.NoError(t, err)
	require.Equal(t, "10", v.Display())
}

func TestResolve_FormulaCycleBreaksToEmptyConcat(t *testing.T) {
	// f_a = "{f_b}+1", f_b = "{f_a}+1". resolve(f_a) must terminate. The
	// re-entrant leg hits the cycle, returns empty; "" + 1 falls back to
	// string concatenation under the evaluator's lenient "+" operator,
	// producing "1" at the point of re-entry, which then propagates back
	// out as "1"+1 = 2 one level up... but since both formulas share the
	// same text, what actually happens is: resolve(f_a, i1) recurses into
	// f_b, which recurses into f_a again (cycle) -> empty. f_b's env gets
	// f_a=empty, evaluates "" + 1 -> "1" (concat fallback). f_a's env then
	// gets f_b="1", evaluates "1" + 1 -> numeric 2.
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"f_a": formulaCol("f_a", `{f_b}+1`),
		"f_b": formulaCol("f_b", `{f_a}+1`),
	}}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "f_a", "i1")
	require.NoError(t, err)
	require.Equal(t, "2", v.Display())
}

func TestResolve_MirrorSumsLinkedNumbers(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"m1": mirrorCol("m1", "rel", []string{"target"}, schema.AggSum),
	}}
	client.boards["b2"] = &schema.BoardSchema{BoardID: "b2", Columns: map[string]*schema.ColumnDef{
		"target": numCol("target"),
	}}
	client.mirrors[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "m1", ItemID: "i1"}] = queryclient.DeepMirrorResult{
		MirroredItems: []queryclient.LinkedItem{
			{LinkedBoardID: "b2", LinkedItemID: "j1"},
			{LinkedBoardID: "b2", LinkedItemID: "j2"},
		},
	}
	client.values[queryclient.ResolutionKey{BoardID: "b2", ColumnID: "target", ItemID: "j1"}] = column.RawValue{Number: 3, HasNumber: true}
	client.values[queryclient.ResolutionKey{BoardID: "b2", ColumnID: "target", ItemID: "j2"}] = column.RawValue{Number: 4, HasNumber: true}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "m1", "i1")
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	require.Equal(t, 7.0, n)
}

func TestResolve_MirrorUsesPlatformDisplayValueWhenPresent(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"m1": mirrorCol("m1", "rel", []string{"target"}, schema.AggSum),
	}}
	client.mirrors[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "m1", ItemID: "i1"}] = queryclient.DeepMirrorResult{
		HasDisplayValue: true,
		DisplayValue:    "12, 13",
	}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "m1", "i1")
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	require.Equal(t, 25.0, n)
	require.EqualValues(t, 1, client.deepMirrorCalls)
}

func TestResolveBatch_LeafColumnIssuesOneBatchedCall(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"c1": numCol("c1"),
	}}
	for i, id := range []string{"i1", "i2", "i3"} {
		client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: id}] = column.RawValue{Number: float64(i + 1), HasNumber: true}
	}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	out, err := sess.ResolveBatch(context.Background(), "b1", "c1", []string{"i1", "i2", "i3"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.EqualValues(t, 1, client.displayValueBatchCall)
	require.EqualValues(t, 0, client.displayValueCalls)
}

func TestResolve_ValueCacheIsWriteOnce(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"c1": numCol("c1"),
	}}
	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}] = column.RawValue{Number: 1, HasNumber: true}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v1, err := sess.Resolve(context.Background(), "b1", "c1", "i1")
	require.NoError(t, err)
	require.Equal(t, "1", v1.Display())

	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}] = column.RawValue{Number: 999, HasNumber: true}

	v2, err := sess.Resolve(context.Background(), "b1", "c1", "i1")
	require.NoError(t, err)
	require.Equal(t, "1", v2.Display(), "a resolved key must never re-fetch within the same session")
	require.EqualValues(t, 1, client.displayValueCalls)
}

func TestResolve_SchemaFetchIsDedupedAcrossConcurrentResolves(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"c1": numCol("c1"), "c2": numCol("c2"),
	}}
	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}] = column.RawValue{Number: 1, HasNumber: true}
	client.values[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c2", ItemID: "i1"}] = column.RawValue{Number: 2, HasNumber: true}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = sess.Resolve(context.Background(), "b1", "c1", "i1") }()
	go func() { defer wg.Done(); _, _ = sess.Resolve(context.Background(), "b1", "c2", "i1") }()
	wg.Wait()

	require.LessOrEqual(t, client.schemaCalls, int32(2))
}

func TestResolve_MirrorSingleNumberDisplayValueSkipsCountAggregation(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"m1": mirrorCol("m1", "rel", []string{"target"}, schema.AggCount),
	}}
	client.mirrors[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "m1", ItemID: "i1"}] = queryclient.DeepMirrorResult{
		HasDisplayValue: true,
		DisplayValue:    "42",
	}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "m1", "i1")
	require.NoError(t, err)
	require.Equal(t, "42", v.Display(), "a single precomputed number must be returned as-is, not counted as a one-element list")
}

func TestResolve_MirrorSkipsDisplayValueWhenTargetIsComplex(t *testing.T) {
	client := newFakeClient()
	client.boards["b1"] = &schema.BoardSchema{BoardID: "b1", Columns: map[string]*schema.ColumnDef{
		"m1": mirrorCol("m1", "rel", []string{"target"}, schema.AggSum),
	}}
	client.boards["b2"] = &schema.BoardSchema{BoardID: "b2", Columns: map[string]*schema.ColumnDef{
		"target": formulaCol("target", `1 + 2`),
	}}
	client.mirrors[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "m1", ItemID: "i1"}] = queryclient.DeepMirrorResult{
		HasDisplayValue: true,
		DisplayValue:    "999", // stale: "target" is itself computed, the platform never populates this
		MirroredItems: []queryclient.LinkedItem{
			{LinkedBoardID: "b2", LinkedItemID: "j1"},
			{LinkedBoardID: "b2", LinkedItemID: "j2"},
		},
	}

	sess := NewSession(client, testOpts(), testutil.NewTestLogger(t))
	v, err := sess.Resolve(context.Background(), "b1", "m1", "i1")
	require.NoError(t, err)
	require.Equal(t, "6", v.Display(), "a complex mirror target must skip the platform's display_value fast path and recurse into each linked item")
}

// blockingMultiColumnsClient wraps fakeClient to make MultiColumnsDeep
// block until its context is done, so tests can observe exactly what
// context the coordinator threads into the remote call.
type blockingMultiColumnsClient struct {
	*fakeClient
	started chan struct{}
	ctxErr  chan error
}

func (c *blockingMultiColumnsClient) MultiColumnsDeep(ctx context.Context, _ queryclient.MultiColumnsDeepRequest) (map[queryclient.ResolutionKey]column.RawValue, error) {
	close(c.started)
	<-ctx.Done()
	c.ctxErr <- ctx.Err()
	return nil, ctx.Err()
}

func TestCoordinator_SessionCloseCancelsInFlightBatchContext(t *testing.T) {
	client := &blockingMultiColumnsClient{fakeClient: newFakeClient(), started: make(chan struct{}), ctxErr: make(chan error, 1)}
	opts := testOpts()
	opts.BatchWindowMS = 0
	sess := NewSession(client, opts, testutil.NewTestLogger(t))

	go func() { _, _, _ = sess.coord.request(context.Background(), "b1", "i1", "c1") }()

	select {
	case <-client.started:
	case <-time.After(2 * time.Second):
		t.Fatal("MultiColumnsDeep was never invoked")
	}

	sess.Close()

	select {
	case err := <-client.ctxErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Session.Close did not cancel the in-flight batch's context")
	}
}
