package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/leapstack-labs/formulacore/internal/column"
	"github.com/leapstack-labs/formulacore/internal/queryclient"
)

// coordinator collects column requests for the same (boardId, itemId)
// within a short batch window and issues one multi-columns-deep query
// for all of them, distributing results back to each caller. A window
// of 0 fires on the next scheduler tick — correct, just unbatched.
type coordinator struct {
	client   queryclient.Client
	windowMS int
	mu       sync.Mutex
	batches  map[itemKey]*pendingBatch

	// closed is cancelled by cancel(), and merged into every batch's
	// context so a batch's remote call is aborted by session teardown
	// even after it has already left the timer and entered fire().
	closed  context.Context
	closeFn context.CancelFunc
}

type itemKey struct {
	boardID string
	itemID  string
}

type pendingBatch struct {
	mu        sync.Mutex
	boardID   string
	itemID    string
	columns   map[string]struct{}
	waiters   []chan batchOutcome
	timer     *time.Timer
	fired     bool
	ctx       context.Context
	stopMerge func()
}

type batchOutcome struct {
	values map[string]column.RawValue
	err    error
}

func newCoordinator(client queryclient.Client, windowMS int) *coordinator {
	closed, closeFn := context.WithCancel(context.Background())
	return &coordinator{client: client, windowMS: windowMS, batches: make(map[itemKey]*pendingBatch), closed: closed, closeFn: closeFn}
}

// mergeContext derives a context that is cancelled when either ctx or
// bg is done, so a batch's remote call inherits both the context of
// whichever caller happened to start the batch and the coordinator's
// own teardown signal. The returned stop func must be called once the
// merge is no longer needed, to release its watcher goroutine.
func mergeContext(ctx, bg context.Context) (context.Context, func()) {
	merged, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		select {
		case <-bg.Done():
			cancel()
		case <-done:
		}
	}()
	return merged, func() { close(done); cancel() }
}

// request enqueues columnID for itemID's next batch and blocks until
// that batch fires, returning the raw value the query returned for this
// column (found is false if the response had nothing for it).
func (co *coordinator) request(ctx context.Context, boardID, itemID, columnID string) (column.RawValue, bool, error) {
	ch := make(chan batchOutcome, 1)
	ik := itemKey{boardID: boardID, itemID: itemID}

	co.mu.Lock()
	b, ok := co.batches[ik]
	if !ok {
		bctx, stop := mergeContext(ctx, co.closed)
		b = &pendingBatch{boardID: boardID, itemID: itemID, columns: make(map[string]struct{}), ctx: bctx, stopMerge: stop}
		co.batches[ik] = b
		b.timer = time.AfterFunc(time.Duration(co.windowMS)*time.Millisecond, func() {
			co.fire(ik, b)
		})
	}
	co.mu.Unlock()

	b.mu.Lock()
	b.columns[columnID] = struct{}{}
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	select {
	case out := <-ch:
		if out.err != nil {
			return column.RawValue{}, false, out.err
		}
		v, found := out.values[columnID]
		return v, found, nil
	case <-ctx.Done():
		return column.RawValue{}, false, ctx.Err()
	}
}

func (co *coordinator) fire(ik itemKey, b *pendingBatch) {
	co.mu.Lock()
	if co.batches[ik] == b {
		delete(co.batches, ik)
	}
	co.mu.Unlock()

	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		return
	}
	b.fired = true
	columnIDs := make([]string, 0, len(b.columns))
	for c := range b.columns {
		columnIDs = append(columnIDs, c)
	}
	waiters := b.waiters
	b.mu.Unlock()
	defer b.stopMerge()

	raw, err := co.client.MultiColumnsDeep(b.ctx, queryclient.MultiColumnsDeepRequest{
		BoardID:   b.boardID,
		ColumnIDs: columnIDs,
		ItemIDs:   []string{b.itemID},
	})
	out := batchOutcome{err: err}
	if err == nil {
		out.values = make(map[string]column.RawValue, len(columnIDs))
		for _, colID := range columnIDs {
			if v, ok := raw[queryclient.ResolutionKey{BoardID: b.boardID, ColumnID: colID, ItemID: b.itemID}]; ok {
				out.values[colID] = v
			}
		}
	}
	for _, w := range waiters {
		w <- out
	}
}

// flush forces every pending batch to fire immediately, skipping its
// remaining wait time. Used by tests and before session teardown.
func (co *coordinator) flush() {
	co.mu.Lock()
	pending := make([]*pendingBatch, 0, len(co.batches))
	ids := make([]itemKey, 0, len(co.batches))
	for ik, b := range co.batches {
		pending = append(pending, b)
		ids = append(ids, ik)
	}
	co.mu.Unlock()

	for i, b := range pending {
		b.timer.Stop()
		co.fire(ids[i], b)
	}
}

// cancel aborts every batch still waiting on its timer with
// ErrCancelled instead of issuing the remote call, and cancels the
// merged context threaded into any batch already inside fire(), so its
// in-flight MultiColumnsDeep call is aborted too rather than left
// running past session teardown.
func (co *coordinator) cancel() {
	co.closeFn()

	co.mu.Lock()
	pending := make([]*pendingBatch, 0, len(co.batches))
	for _, b := range co.batches {
		pending = append(pending, b)
	}
	co.batches = make(map[itemKey]*pendingBatch)
	co.mu.Unlock()

	for _, b := range pending {
		b.timer.Stop()
		b.mu.Lock()
		if b.fired {
			b.mu.Unlock()
			continue
		}
		b.fired = true
		waiters := b.waiters
		b.mu.Unlock()
		b.stopMerge()
		for _, w := range waiters {
			w <- batchOutcome{err: ErrCancelled}
		}
	}
}
