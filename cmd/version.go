package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the tool version and the Go version used to build this binary.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("tool\t\t", toolName)
			cmd.Println("version\t\t", resolveVersion())

			if info, ok := debug.ReadBuildInfo(); ok {
				cmd.Println("go version\t", info.GoVersion)
			}
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
