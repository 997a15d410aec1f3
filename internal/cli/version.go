package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "formulacore v%s\n", Version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Formula and mirror column resolver")
		},
	}
}
