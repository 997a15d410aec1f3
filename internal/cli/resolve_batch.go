package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newResolveBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-batch <board-id> <column-id> <item-id>...",
		Short: "Resolve one column's value across many items",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd.Context())
			boardID, columnID, itemIDs := args[0], args[1], args[2:]

			values, err := a.session.ResolveBatch(cmd.Context(), boardID, columnID, itemIDs)
			if err != nil {
				return fmt.Errorf("resolve-batch %s/%s: %w", boardID, columnID, err)
			}

			if a.out == "json" {
				out := make(map[string]string, len(itemIDs))
				for _, id := range itemIDs {
					out[id] = values[id].Display()
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Item", "Value"})
			for _, id := range itemIDs {
				t.AppendRow(table.Row{id, values[id].Display()})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}
