package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <board-id> <column-id> <item-id>",
		Short: "Resolve one column's value on one item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd.Context())
			boardID, columnID, itemID := args[0], args[1], args[2]

			v, err := a.session.Resolve(cmd.Context(), boardID, columnID, itemID)
			if err != nil {
				return fmt.Errorf("resolve %s/%s/%s: %w", boardID, columnID, itemID, err)
			}

			if a.out == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"board_id": boardID, "column_id": columnID, "item_id": itemID,
					"kind": v.Kind().String(), "value": v.Display(),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v.Display())
			return nil
		},
	}
	return cmd
}
