package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pacing-forecaster/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pacingforecaster %s\n", version.String())
	},
}
