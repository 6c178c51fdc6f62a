package cmd

import (
	"fmt"
	"runtime"

	"github.com/bnema/primelayer/internal/ui"
	"github.com/spf13/cobra"
)

var (
	// Version info set by main package
	Version = "0.1.0-dev"
	Commit  string
	Date    string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.FormatHeader("primelayer "+Version))
		if Commit != "" {
			fmt.Fprintln(out, ui.FormatKeyValue("commit", Commit))
		}
		if Date != "" {
			fmt.Fprintln(out, ui.FormatKeyValue("built", Date))
		}
		fmt.Fprintln(out, ui.FormatKeyValue("go", runtime.Version()))
		fmt.Fprintln(out, ui.FormatKeyValue("platform", runtime.GOOS+"/"+runtime.GOARCH))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
