package cmd

import (
	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/osmium"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the osmium filter tool is installed",
	Long: `Check that the osmium command-line tool is available on PATH.

osmium is required by the filter command only; convert, info and load work
without it. Exits non-zero if osmium is missing.`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	if !osmium.Available() {
		exitWithError("osmium is not installed (not found on PATH)", nil)
	}
	logger.Get().Info("osmium is installed")
}
