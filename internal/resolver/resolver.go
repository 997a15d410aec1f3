// Package resolver implements the recursive column-value resolution
// algorithm: given a board, column, and item, produce the Scalar a user
// would see in that cell, following formula dependencies and mirror
// relations, with cycle detection, caching, in-flight dedup, and
// micro-batch coordination across sibling lookups on the same item.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/formulacore/internal/column"
	"github.com/leapstack-labs/formulacore/internal/config"
	"github.com/leapstack-labs/formulacore/internal/queryclient"
	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/leapstack-labs/formulacore/pkg/formula"
	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

// Session owns every cache, in-flight table, and coordinator a run of
// resolves shares. A Session is safe for concurrent use; create one per
// logical "session" of work (per request, per CLI invocation) and Close
// it when done.
type Session struct {
	id        string
	client    queryclient.Client
	opts      config.Options
	functions formula.FuncTable
	logger    *slog.Logger

	schemas  *schemaCache
	values   *valueCache
	inflight singleflight.Group
	coord    *coordinator
}

// NewSession builds a Session against client, configured by opts.
// logger may be nil, in which case a discarding logger is used. Each
// Session gets a random id so its debug log lines can be correlated
// across the goroutines a single resolve fans out into.
func NewSession(client queryclient.Client, opts config.Options, logger *slog.Logger) *Session {
	id := uuid.New().String()
	if logger == nil {
		level := slog.LevelWarn
		if opts.DebugLog {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: level}))
	}
	logger = logger.With("session", id)
	return &Session{
		id:        id,
		client:    client,
		opts:      opts,
		functions: formula.DefaultFunctions(),
		logger:    logger,
		schemas:   newSchemaCache(time.Duration(opts.SchemaTTLMS) * time.Millisecond),
		values:    newValueCache(),
		coord:     newCoordinator(client, opts.BatchWindowMS),
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Flush forces any pending coordinator batches to fire immediately,
// rather than waiting out their batch window.
func (s *Session) Flush() { s.coord.flush() }

// Close cancels any pending coordinator batches. A Session is not
// usable afterwards.
func (s *Session) Close() { s.coord.cancel() }

// cycleSet tracks the keys on the current resolution's call stack. It
// is threaded as an explicit, immutable value: each recursive call gets
// its own copy with its own key added, so sibling branches of a fan-out
// never observe each other's in-progress keys, and a return from
// recursion "forgets" the key for free — no stack to unwind by hand.
type cycleSet map[Key]struct{}

func (s cycleSet) with(k Key) cycleSet {
	out := make(cycleSet, len(s)+1)
	for kk := range s {
		out[kk] = struct{}{}
	}
	out[k] = struct{}{}
	return out
}

func (s cycleSet) has(k Key) bool {
	_, ok := s[k]
	return ok
}

// defaultFor is the fallback scalar for a key the caller could not
// resolve, whether because of a cycle or a remote failure: empty,
// unless the value is feeding a numeric aggregation (a mirror's sum,
// avg, min, max, or count over its linked items), in which case 0 keeps
// the aggregation arithmetic sound.
func defaultFor(numericParent bool) scalar.Scalar {
	if numericParent {
		return scalar.NumberVal(0)
	}
	return scalar.EmptyVal
}

// Resolve computes the value of one column on one item. A RemoteError
// or context cancellation from the resolution itself is returned to the
// caller; the same failures arising from a dependency deeper in the
// tree are swallowed locally into a fallback scalar, per resolveKey's
// contract for non-top-level calls.
func (s *Session) Resolve(ctx context.Context, boardID, columnID, itemID string) (scalar.Scalar, error) {
	return s.resolveKey(ctx, Key{BoardID: boardID, ColumnID: columnID, ItemID: itemID}, nil, false)
}

// ResolveBatch computes the value of one column across many items. For
// a leaf (non-formula, non-mirror) column this issues a single batched
// display-value query up front; formula and mirror columns fall back to
// one Resolve per item, run concurrently.
func (s *Session) ResolveBatch(ctx context.Context, boardID, columnID string, itemIDs []string) (map[string]scalar.Scalar, error) {
	out := make(map[string]scalar.Scalar, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	board, err := s.schemas.get(ctx, s.client, boardID)
	if err != nil {
		return nil, wrapRemote("schema", err)
	}
	if board == nil {
		for _, id := range itemIDs {
			out[id] = scalar.EmptyVal
		}
		return out, nil
	}
	def, ok := board.Column(columnID)
	if !ok {
		for _, id := range itemIDs {
			out[id] = scalar.EmptyVal
		}
		return out, nil
	}

	if def.Kind != schema.KindFormula && def.Kind != schema.KindMirror {
		raw, err := s.client.DisplayValueBatch(ctx, boardID, columnID, itemIDs)
		if err != nil {
			return nil, wrapRemote("display-value-batch", err)
		}
		var mu sync.Mutex
		var missing []string
		for _, id := range itemIDs {
			if rv, ok := raw[id]; ok {
				v := column.Extract(def.Kind, rv, nil)
				key := Key{BoardID: boardID, ColumnID: columnID, ItemID: id}
				s.values.set(key, v)
				mu.Lock()
				out[id] = v
				mu.Unlock()
			} else {
				missing = append(missing, id)
			}
		}
		for _, id := range missing {
			v, rerr := s.Resolve(ctx, boardID, columnID, id)
			if rerr != nil {
				return nil, rerr
			}
			out[id] = v
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, id := range itemIDs {
		id := id
		g.Go(func() error {
			v, rerr := s.Resolve(gctx, boardID, columnID, id)
			if rerr != nil {
				return rerr
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveKey is the single entry point every recursive lookup funnels
// through: cycle check, value cache, in-flight dedup, then dispatch by
// column kind. numericParent is true only while recursing into a
// mirror's linked items under a numeric aggregation function (sum, avg,
// min, max, count) — it is what makes defaultFor produce 0 instead of
// empty for that one recursion shape, per the cycle-break and
// failure-fallback contract.
func (s *Session) resolveKey(ctx context.Context, key Key, cycles cycleSet, numericParent bool) (scalar.Scalar, error) {
	if cycles.has(key) {
		return defaultFor(numericParent), nil
	}
	if v, ok := s.values.get(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return scalar.EmptyVal, err
	}

	type result struct {
		v scalar.Scalar
		e error
	}
	v, err, _ := s.inflight.Do(key.String(), func() (interface{}, error) {
		val, rerr := s.computeKey(ctx, key, cycles.with(key), numericParent)
		if rerr == nil {
			s.values.set(key, val)
		}
		return result{v: val, e: rerr}, nil
	})
	r := v.(result)
	_ = err // inflight.Do's own error is always nil here; rerr travels inside result
	if r.e != nil {
		return scalar.EmptyVal, r.e
	}
	return r.v, nil
}

func (s *Session) computeKey(ctx context.Context, key Key, cycles cycleSet, numericParent bool) (scalar.Scalar, error) {
	board, err := s.schemas.get(ctx, s.client, key.BoardID)
	if err != nil {
		return scalar.EmptyVal, wrapRemote("schema", err)
	}
	if board == nil {
		return scalar.EmptyVal, nil
	}
	def, ok := board.Column(key.ColumnID)
	if !ok {
		return scalar.EmptyVal, nil
	}

	switch def.Kind {
	case schema.KindFormula:
		return s.resolveFormula(ctx, key, board, def, cycles)
	case schema.KindMirror:
		return s.resolveMirror(ctx, key, def, cycles)
	default:
		return s.resolveLeaf(ctx, key, def)
	}
}

// resolveLeaf fetches a non-computed column's value directly. Numeric
// columns get a second fetch if the first payload carried no number:
// the platform sometimes needs a beat to populate a fresh numeric
// cell's display value.
func (s *Session) resolveLeaf(ctx context.Context, key Key, def *schema.ColumnDef) (scalar.Scalar, error) {
	raw, ok, err := s.client.DisplayValue(ctx, key)
	if err != nil {
		return scalar.EmptyVal, wrapRemote("display-value", err)
	}
	if !ok {
		return column.DefaultForKind(def.Kind, nil), nil
	}
	val := column.Extract(def.Kind, raw, nil)
	if def.Kind == schema.KindNumber && !raw.HasNumber && strings.TrimSpace(raw.Text) == "" {
		raw2, ok2, err2 := s.client.DisplayValue(ctx, key)
		if err2 != nil {
			return scalar.EmptyVal, wrapRemote("display-value", err2)
		}
		if ok2 {
			val = column.Extract(def.Kind, raw2, nil)
		}
	}
	return val, nil
}

// resolveFormula parses the column's formula text, resolves every
// referenced column (via the coordinator for simple kinds, recursively
// for complex ones, per SelectStrategy), and evaluates the expression
// tree against the resulting environment. A formula with no dependency
// columns evaluates immediately with no remote calls at all. A
// ParseError is logged and treated as empty, never propagated: a
// broken formula still produces a cell value.
func (s *Session) resolveFormula(ctx context.Context, key Key, board *schema.BoardSchema, def *schema.ColumnDef, cycles cycleSet) (scalar.Scalar, error) {
	src := ""
	if def.Formula != nil {
		src = def.Formula.FormulaText
	}
	expr, perr := formula.Parse(src)
	if perr != nil {
		s.logger.Debug("formula parse error", "board", key.BoardID, "column", key.ColumnID, "err", perr)
		return scalar.EmptyVal, nil
	}

	depSet := formula.ExtractColumnIDs(src)
	if len(depSet) == 0 {
		ev := formula.NewEvaluator(formula.Env{}, s.functions, subFieldOf)
		return ev.Eval(expr), nil
	}
	depIDs := make([]string, 0, len(depSet))
	for id := range depSet {
		depIDs = append(depIDs, id)
	}
	sort.Strings(depIDs)

	decision := SelectStrategy(board, depIDs)

	if decision.ProbeDisplayValue {
		if raw, ok, err := s.client.DisplayValue(ctx, key); err == nil && ok {
			probe := column.Extract(schema.KindText, raw, nil)
			if !probe.IsEmpty() {
				return probe, nil
			}
		}
	}

	env := formula.Env{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, col := range decision.UseCoordinator {
		col := col
		g.Go(func() error {
			v := s.resolveViaCoordinatorOrRecurse(gctx, key.BoardID, key.ItemID, col, board, cycles)
			mu.Lock()
			env[col] = v
			mu.Unlock()
			return nil
		})
	}
	for _, col := range decision.Recurse {
		col := col
		g.Go(func() error {
			depKey := Key{BoardID: key.BoardID, ColumnID: col, ItemID: key.ItemID}
			v, verr := s.resolveKey(gctx, depKey, cycles, false)
			if verr != nil {
				v = defaultFor(false)
			}
			mu.Lock()
			env[col] = v
			mu.Unlock()
			return nil
		})
	}
	// Dependency failures are swallowed into fallback scalars above, so
	// Wait only ever reports this formula's own context being cancelled.
	if err := g.Wait(); err != nil {
		return scalar.EmptyVal, err
	}

	ev := formula.NewEvaluator(env, s.functions, subFieldOf)
	return ev.Eval(expr), nil
}

// resolveViaCoordinatorOrRecurse is decision.UseCoordinator's per-column
// path: ask the batching coordinator first (cheap, shared across
// sibling dependency columns on the same item), and only fall back to a
// full recursive resolve when the coordinator's answer is empty — e.g.
// the platform had nothing cached for that column yet.
func (s *Session) resolveViaCoordinatorOrRecurse(ctx context.Context, boardID, itemID, columnID string, board *schema.BoardSchema, cycles cycleSet) scalar.Scalar {
	raw, found, err := s.coord.request(ctx, boardID, itemID, columnID)
	if err == nil && found {
		kind := schema.KindUnknown
		if def, ok := board.Column(columnID); ok {
			kind = def.Kind
		}
		val := column.Extract(kind, raw, nil)
		if !val.IsEmpty() {
			return val
		}
	}
	depKey := Key{BoardID: boardID, ColumnID: columnID, ItemID: itemID}
	v, verr := s.resolveKey(ctx, depKey, cycles, false)
	if verr != nil {
		return defaultFor(false)
	}
	return v
}

// resolveMirror follows a mirror's relation column to its linked items
// and aggregates each one's target column value. The platform's own
// deep-mirror display value is used directly when present — it is
// already the aggregated or joined result — unless the displayed target
// column is itself complex (formula/mirror/lookup), in which case that
// value is never reliable and is skipped outright. Otherwise the
// resolver fans out to resolve each linked item's target column itself,
// recursing with numericParent set whenever the aggregation function is
// numeric (sum, avg, min, max, count), so that a cycle reached through
// this path breaks to 0 rather than empty.
func (s *Session) resolveMirror(ctx context.Context, key Key, def *schema.ColumnDef, cycles cycleSet) (scalar.Scalar, error) {
	mirror := def.Mirror
	if mirror == nil {
		return scalar.EmptyVal, nil
	}

	result, err := s.client.DeepMirror(ctx, key.BoardID, key.ColumnID, key.ItemID)
	if err != nil {
		return scalar.EmptyVal, wrapRemote("deep-mirror", err)
	}

	numeric := column.IsNumericAggregation(mirror.Function)

	targetColumnID := ""
	if len(mirror.DisplayedLinkedColumns) > 0 {
		targetColumnID = mirror.DisplayedLinkedColumns[0]
	}

	// A complex target (formula/mirror/lookup) never has a usable
	// display_value on the platform — it is itself computed, not stored —
	// so the fast path is skipped entirely per §4.8's mirror rule and the
	// resolver always fans out to each linked item instead.
	fastPathUsable := true
	if len(result.MirroredItems) > 0 && targetColumnID != "" {
		targetBoard, berr := s.schemas.get(ctx, s.client, result.MirroredItems[0].LinkedBoardID)
		if berr == nil && MirrorTargetIsComplex(targetBoard, targetColumnID) {
			fastPathUsable = false
		}
	}

	if fastPathUsable && result.HasDisplayValue && result.DisplayValue != "" {
		return column.MirrorDisplayScalar(result.DisplayValue, mirror.Function), nil
	}

	if len(result.MirroredItems) == 0 {
		return column.DefaultForKind(schema.KindMirror, mirror), nil
	}

	values := make([]scalar.Scalar, len(result.MirroredItems))
	g, gctx := errgroup.WithContext(ctx)
	for i, mi := range result.MirroredItems {
		i, mi := i, mi
		g.Go(func() error {
			depKey := Key{BoardID: mi.LinkedBoardID, ColumnID: targetColumnID, ItemID: mi.LinkedItemID}
			v, verr := s.resolveKey(gctx, depKey, cycles, numeric)
			if verr != nil {
				v = defaultFor(numeric)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return scalar.EmptyVal, err
	}

	return aggregateMirrorValues(values, mirror.Function, numeric), nil
}

// aggregateMirrorValues combines a mirror's resolved linked-item values:
// numerically, when every value coerces to a number, else by a
// comma-joined text list, matching the platform's own degrade-to-text
// behaviour for mixed or non-numeric mirrored columns.
func aggregateMirrorValues(values []scalar.Scalar, fn schema.AggregationFn, numeric bool) scalar.Scalar {
	if len(values) == 0 {
		return defaultFor(numeric)
	}
	nums := make([]float64, 0, len(values))
	allNumeric := true
	for _, v := range values {
		n, ok := v.AsNumber()
		if !ok {
			allNumeric = false
			break
		}
		nums = append(nums, n)
	}
	if allNumeric {
		return scalar.NumberVal(column.Aggregate(nums, fn))
	}
	texts := make([]string, len(values))
	for i, v := range values {
		texts[i] = v.AsText()
	}
	return scalar.TextVal(strings.Join(texts, ", "))
}

// subFieldOf is the resolver's SubFieldFunc: {columnId#subfield}
// references. Structured columns (location, people) are extracted as
// comma- or "lat,lng"-joined text, so sub-field access is a best-effort
// split on that text rather than a typed accessor.
func subFieldOf(value scalar.Scalar, subField string) scalar.Scalar {
	parts := strings.Split(value.AsText(), ",")
	switch strings.ToLower(subField) {
	case "lat", "latitude":
		if len(parts) > 0 {
			return scalar.TextVal(strings.TrimSpace(parts[0]))
		}
	case "lng", "lon", "longitude":
		if len(parts) > 1 {
			return scalar.TextVal(strings.TrimSpace(parts[1]))
		}
	}
	return scalar.EmptyVal
}

func wrapRemote(query string, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*queryclient.RemoteError); ok {
		return re
	}
	return &queryclient.RemoteError{Query: query, Err: err}
}
