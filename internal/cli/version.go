package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"scan-alert-relay/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alertrelay %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
	},
}
