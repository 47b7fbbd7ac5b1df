package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simscan/internal/version"
)

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simscan",
		Short: "Find duplicated code by comparing syntax trees",
		Long: `simscan finds duplicated and near-duplicated code across a code base.

Functions are parsed with tree-sitter and compared with tree edit distance,
so renamed variables, reformatting and small edits do not hide a copy.
Fingerprints and locality-sensitive hashing keep large projects fast.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewCompareCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
