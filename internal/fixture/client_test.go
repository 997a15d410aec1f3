package fixture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/formulacore/internal/queryclient"
	"github.com/leapstack-labs/formulacore/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSchema_UnknownBoardIsNilNotError(t *testing.T) {
	store := newTestStore(t)
	client := NewClient(store)

	board, err := client.Schema(context.Background(), "missing-board")
	require.NoError(t, err)
	require.Nil(t, board)
}

func TestSchema_ReturnsColumnsByKind(t *testing.T) {
	store := newTestStore(t)
	seeder := NewSeeder(store)
	ctx := context.Background()

	require.NoError(t, seeder.Board(ctx, "b1"))
	require.NoError(t, seeder.Column(ctx, "b1", ColumnSeed{ID: "c_num", Title: "Count", Kind: "number"}))
	require.NoError(t, seeder.Column(ctx, "b1", ColumnSeed{
		ID: "c_mirror", Title: "Total", Kind: "mirror",
		MirrorRelationColumnID: "c_rel", MirrorDisplayed: []string{"c_num"}, MirrorFunction: "sum",
	}))

	client := NewClient(store)
	board, err := client.Schema(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, board)

	def, ok := board.Column("c_num")
	require.True(t, ok)
	require.Equal(t, schema.KindNumber, def.Kind)

	mdef, ok := board.Column("c_mirror")
	require.True(t, ok)
	require.Equal(t, schema.KindMirror, mdef.Kind)
	require.NotNil(t, mdef.Mirror)
	require.Equal(t, schema.AggSum, mdef.Mirror.Function)
	require.Equal(t, []string{"c_num"}, mdef.Mirror.DisplayedLinkedColumns)
}

func TestDisplayValue_MissingRowIsNotOk(t *testing.T) {
	store := newTestStore(t)
	client := NewClient(store)

	_, ok, err := client.DisplayValue(context.Background(), queryclient.ResolutionKey{
		BoardID: "b1", ColumnID: "c1", ItemID: "i1",
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDisplayValueBatch_OnlyReturnsExistingItems(t *testing.T) {
	store := newTestStore(t)
	seeder := NewSeeder(store)
	ctx := context.Background()

	require.NoError(t, seeder.Board(ctx, "b1"))
	require.NoError(t, seeder.Value(ctx, "b1", ValueSeed{ColumnID: "c1", ItemID: "i1", Number: 10, HasNumber: true}))
	require.NoError(t, seeder.Value(ctx, "b1", ValueSeed{ColumnID: "c1", ItemID: "i2", Number: 20, HasNumber: true}))

	client := NewClient(store)
	out, err := client.DisplayValueBatch(ctx, "b1", "c1", []string{"i1", "i2", "i3"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 10.0, out["i1"].Number)
	require.Equal(t, 20.0, out["i2"].Number)
}

func TestDeepMirror_ReturnsDisplayValueAndLinkedItems(t *testing.T) {
	store := newTestStore(t)
	seeder := NewSeeder(store)
	ctx := context.Background()

	require.NoError(t, seeder.Board(ctx, "b1"))
	require.NoError(t, seeder.Value(ctx, "b1", ValueSeed{
		ColumnID: "c_mirror", ItemID: "i1", DisplayValue: "15", HasDisplayValue: true,
	}))
	require.NoError(t, seeder.MirrorLink(ctx, "b1", MirrorLinkSeed{
		ColumnID: "c_mirror", ItemID: "i1", Order: 0,
		LinkedBoardID: "b2", LinkedItemID: "j1", Name: "Task 1",
	}))
	require.NoError(t, seeder.MirrorLink(ctx, "b1", MirrorLinkSeed{
		ColumnID: "c_mirror", ItemID: "i1", Order: 1,
		LinkedBoardID: "b2", LinkedItemID: "j2", Name: "Task 2",
	}))

	client := NewClient(store)
	result, err := client.DeepMirror(ctx, "b1", "c_mirror", "i1")
	require.NoError(t, err)
	require.True(t, result.HasDisplayValue)
	require.Equal(t, "15", result.DisplayValue)
	require.Len(t, result.MirroredItems, 2)
	require.Equal(t, "j1", result.MirroredItems[0].LinkedItemID)
	require.Equal(t, "j2", result.MirroredItems[1].LinkedItemID)
}

func TestMultiColumnsDeep_GroupsByColumnAndItem(t *testing.T) {
	store := newTestStore(t)
	seeder := NewSeeder(store)
	ctx := context.Background()

	require.NoError(t, seeder.Board(ctx, "b1"))
	require.NoError(t, seeder.Value(ctx, "b1", ValueSeed{ColumnID: "c1", ItemID: "i1", Text: "x", HasDisplayValue: false}))
	require.NoError(t, seeder.Value(ctx, "b1", ValueSeed{ColumnID: "c2", ItemID: "i1", Number: 5, HasNumber: true}))

	client := NewClient(store)
	out, err := client.MultiColumnsDeep(ctx, queryclient.MultiColumnsDeepRequest{
		BoardID: "b1", ColumnIDs: []string{"c1", "c2"}, ItemIDs: []string{"i1"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "x", out[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c1", ItemID: "i1"}].Text)
	require.Equal(t, 5.0, out[queryclient.ResolutionKey{BoardID: "b1", ColumnID: "c2", ItemID: "i1"}].Number)
}
