package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formulacore/internal/fixture"
)

// newSeedCmd loads a small built-in demo board, enough to exercise a
// leaf column, a formula over two leaves, and a mirror summing a
// formula column across linked items.
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demonstration board data into the fixture store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp(cmd.Context())
			ctx := cmd.Context()
			seeder := fixture.NewSeeder(a.store)

			if err := runDemoSeed(ctx, seeder); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "seeded demo board \"demo\" (items item1, item2, item3)")
			return nil
		},
	}
}

func runDemoSeed(ctx context.Context, s *fixture.Seeder) error {
	if err := s.Board(ctx, "demo"); err != nil {
		return err
	}

	columns := []fixture.ColumnSeed{
		{ID: "qty", Title: "Quantity", Kind: "number"},
		{ID: "price", Title: "Price", Kind: "number"},
		{ID: "total", Title: "Total", Kind: "formula", FormulaText: "{qty}*{price}"},
		{ID: "rel", Title: "Related items", Kind: "board_relation"},
		{ID: "mirror_total", Title: "Mirrored total", Kind: "mirror",
			MirrorRelationColumnID: "rel", MirrorDisplayed: []string{"total"}, MirrorFunction: "sum"},
	}
	for _, c := range columns {
		if err := s.Column(ctx, "demo", c); err != nil {
			return err
		}
	}

	items := []struct {
		id         string
		qty, price float64
	}{
		{"item1", 1, 1},
		{"item2", 2, 5},
		{"item3", 3, 4},
	}
	for _, it := range items {
		if err := s.Value(ctx, "demo", fixture.ValueSeed{
			ColumnID: "qty", ItemID: it.id, Number: it.qty, HasNumber: true,
		}); err != nil {
			return err
		}
		if err := s.Value(ctx, "demo", fixture.ValueSeed{
			ColumnID: "price", ItemID: it.id, Number: it.price, HasNumber: true,
		}); err != nil {
			return err
		}
	}

	links := []string{"item2", "item3"}
	for i, linkedID := range links {
		if err := s.MirrorLink(ctx, "demo", fixture.MirrorLinkSeed{
			ColumnID: "mirror_total", ItemID: "item1", Order: i,
			LinkedBoardID: "demo", LinkedItemID: linkedID,
		}); err != nil {
			return err
		}
	}

	return nil
}
