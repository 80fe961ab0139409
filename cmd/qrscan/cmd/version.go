package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/qrscan/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			v, commit, date := version.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "qrscan %s\nCommit: %s\nBuilt: %s\n", v, commit, date)
		},
	}
}
