package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkoster/pairchoice/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pairchoice", version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
