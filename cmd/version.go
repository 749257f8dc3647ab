package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/ti-mo/bandix/cmd.version=...".
var version = "devel"

var versionStr = fmt.Sprintf("%s %s", appName, version)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of bandix.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionStr)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
