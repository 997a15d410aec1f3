// Package queryclient defines the boundary between the resolver and the
// upstream platform: the five query shapes the resolver ever issues, and
// nothing about how they're transported. No GraphQL client lives here —
// see DESIGN.md for why that stays out of the core.
package queryclient

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/formulacore/internal/column"
	"github.com/leapstack-labs/formulacore/internal/schema"
)

// Client is the capability the resolver needs from the upstream
// platform. Every method is safe for concurrent use and must honour
// ctx cancellation promptly: the coordinator's batch timer and the
// errgroup fan-outs both rely on calls returning as soon as ctx is done.
//
// Every method returns raw, unextracted payloads (column.RawValue and
// friends) — turning a payload into a scalar.Scalar is the extractor's
// job (internal/column), not the query layer's.
type Client interface {
	// Schema fetches the column definitions for a board.
	Schema(ctx context.Context, boardID string) (*schema.BoardSchema, error)

	// DisplayValue fetches the platform's own cached display value for a
	// single column on a single item, when one exists. It is a probe: a
	// cache miss is not an error, it is ok=false.
	DisplayValue(ctx context.Context, key ResolutionKey) (value column.RawValue, ok bool, err error)

	// DisplayValueBatch is the batched form of DisplayValue. The resolver
	// passes every requested item id in one call and does not split the
	// list into chunks.
	DisplayValueBatch(ctx context.Context, boardID, columnID string, itemIDs []string) (map[string]column.RawValue, error)

	// DeepMirror follows a mirror column's relation and returns the
	// platform's precomputed display value (if any) plus the list of
	// items the mirror reaches.
	DeepMirror(ctx context.Context, boardID, columnID, itemID string) (DeepMirrorResult, error)

	// MultiColumnsDeep fetches several columns across several items in
	// one round trip — used by the coordinator to amortise sibling
	// requests for the same item into a single call.
	MultiColumnsDeep(ctx context.Context, req MultiColumnsDeepRequest) (map[ResolutionKey]column.RawValue, error)
}

// ResolutionKey identifies one column's value on one item.
type ResolutionKey struct {
	BoardID  string
	ColumnID string
	ItemID   string
}

func (k ResolutionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.BoardID, k.ColumnID, k.ItemID)
}

// LinkedItem is one item a mirror or board-relation column points at.
type LinkedItem struct {
	LinkedBoardID string
	LinkedItemID  string
	Name          string
}

// DeepMirrorResult is the shape a deep-mirror query returns.
type DeepMirrorResult struct {
	DisplayValue    string
	HasDisplayValue bool
	MirroredItems   []LinkedItem
}

// MultiColumnsDeepRequest asks for several columns across several items
// in one round trip.
type MultiColumnsDeepRequest struct {
	BoardID   string
	ColumnIDs []string
	ItemIDs   []string
}

// RemoteError wraps a failure the upstream platform reported, as
// distinct from a resolver-local error (missing schema, parse failure).
type RemoteError struct {
	Query string
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("queryclient: %s: %v", e.Query, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
