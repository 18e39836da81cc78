package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and Commit are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the serp2snow build",
	Args:  cobra.NoArgs,
	// Settings and stores are not needed to print the build.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "serp2snow version %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		if Commit != "none" {
			fmt.Fprintf(out, "commit %s\n", Commit)
		}
	},
}
