package cmd

import (
	"errors"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/osmium"
)

var filterCmd = &cobra.Command{
	Use:   "filter <input.osm.pbf>",
	Short: "Pre-filter a PBF extract with osmium tags-filter",
	Long: `Run osmium tags-filter on a PBF extract, producing a smaller extract at
a derived path (input stem + suffix + .osm.pbf).

The tag expressions come from a filter profile. The built-in default keeps
railway infrastructure (nwr/railway, r/route=train, r/route_master=train,
r/public_transport) with suffix "-railway"; use --profile to supply a YAML
file declaring "suffix" and "expressions".`,
	Args: cobra.ExactArgs(1),
	Run:  runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().BoolVar(&cfg.Force, "force", false, "Overwrite an existing output file")
	filterCmd.Flags().BoolVar(&cfg.NoProgress, "no-progress", false, "Hide osmium's progress output")
	filterCmd.Flags().StringVar(&cfg.FileSuffix, "file-suffix", "", "Suffix for the output file (overrides the profile)")
	filterCmd.Flags().StringVar(&cfg.ProfileFile, "profile", "", "YAML filter profile")
}

func runFilter(cmd *cobra.Command, args []string) {
	log := logger.Get()
	input := args[0]

	var profile *osmium.Profile
	if cfg.ProfileFile != "" {
		var err error
		if profile, err = osmium.LoadProfile(cfg.ProfileFile); err != nil {
			exitWithError("failed to load filter profile", err)
		}
	}

	output, err := osmium.TagsFilter(cmd.Context(), input, osmium.FilterOptions{
		Profile:    profile,
		Force:      cfg.Force,
		Progress:   !cfg.NoProgress,
		FileSuffix: cfg.FileSuffix,
	})
	if err != nil {
		var existsErr *osmium.OutputExistsError
		if errors.As(err, &existsErr) {
			log.Warn("Skipping filter, output already exists",
				zap.String("output", existsErr.Path))
			return
		}
		exitWithError("filter failed", err)
	}

	log.Info("Filter complete", zap.String("output", output))
}
