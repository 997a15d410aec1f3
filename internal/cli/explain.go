package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formulacore/internal/dag"
)

// newExplainCmd prints a board's formula/mirror dependency structure: the
// execution levels a full re-resolve would fan out in, and whether the
// graph itself (as opposed to any one resolve's call stack) contains a
// cycle.
func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <board-id>",
		Short: "Print a board's formula and mirror dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd.Context())
			boardID := args[0]

			board, err := a.client.Schema(cmd.Context(), boardID)
			if err != nil {
				return fmt.Errorf("explain %s: %w", boardID, err)
			}
			if board == nil {
				return fmt.Errorf("explain %s: no such board", boardID)
			}

			g := dag.BuildFormulaGraph(board)
			out := cmd.OutOrStdout()

			if hasCycle, path := g.HasCycle(); hasCycle {
				_, _ = fmt.Fprintf(out, "cycle detected: %s\n", strings.Join(path, " -> "))
				return nil
			}

			levels, err := g.GetExecutionLevels()
			if err != nil {
				return fmt.Errorf("explain %s: %w", boardID, err)
			}
			for i, level := range levels {
				_, _ = fmt.Fprintf(out, "level %d: %s\n", i, strings.Join(level, ", "))
			}
			return nil
		},
	}
}
