package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagLogLevel   int
	flagConfigFile string
	flagLogFile    string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "relinker",
		Short: "Replace duplicate files with hard links",
		Long: `relinker scans a directory tree, groups regular files by content digest and
replaces every redundant copy with a hard link to one canonical file.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Parse persistent flags
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&flagLogFile, "log", "l", "", "Log file")
	rootCmd.PersistentFlags().CountVarP(&flagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.AddCommand(RunCommand())
	rootCmd.AddCommand(PlanCommand())
	rootCmd.AddCommand(VersionCommand())

	return rootCmd
}
