package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/osmpkg"
)

var infoCmd = &cobra.Command{
	Use:   "info <package.osmpkg>",
	Short: "Print table counts for a data package",
	Args:  cobra.ExactArgs(1),
	Run:   runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	pkg, err := osmpkg.Load(args[0])
	if err != nil {
		exitWithError("failed to load package", err)
	}
	fmt.Println(pkg.Summary())
}
