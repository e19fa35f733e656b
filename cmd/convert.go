package cmd

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/convert"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/metrics"
	"github.com/wegman-software/osmpkg-go/internal/progress"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.osm.pbf> [output.osmpkg]",
	Short: "Convert a PBF extract into a data package",
	Long: `Read an OSM PBF extract in a single pass and write a .osmpkg package
containing six Parquet tables:

  nodes            (id, lon, lat)
  node_tags        (owner_id, key, value)
  ways             (id, u, v)          one row per consecutive node pair
  way_tags         (owner_id, key, value)
  relation_members (id, ref, type, role)
  relation_tags    (owner_id, key, value)

Row order matches the extract's stream order. When the output path is
omitted it is derived from the input path (.osm.pbf -> .osmpkg).`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().BoolVar(&cfg.NoProgress, "no-progress", false, "Disable progress reporting")
	convertCmd.Flags().BoolVar(&cfg.CheckRefs, "check-refs", false, "Fail if a way references a node absent from the stream")
	convertCmd.Flags().IntVar(&cfg.ProgressEvery, "progress-every", cfg.ProgressEvery, "Entities between progress reports")
}

func runConvert(cmd *cobra.Command, args []string) {
	log := logger.Get()

	cfg.InputFile = args[0]
	cfg.OutputFile = convert.DefaultOutputPath(cfg.InputFile)
	if len(args) == 2 {
		cfg.OutputFile = args[1]
	}

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	log.Info("Starting conversion",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputFile),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.MetricsInterval > 0 {
		go metrics.NewCollector(cfg.MetricsInterval, log).Start(ctx)
	}

	var reporter progress.Reporter = progress.Nop{}
	if !cfg.NoProgress {
		reporter = progress.NewLogReporter(log)
	}

	start := time.Now()

	conv := convert.New(convert.Options{
		Reporter:      reporter,
		ProgressEvery: cfg.ProgressEvery,
		CheckRefs:     cfg.CheckRefs,
	})
	pkg, stats, err := conv.Run(ctx, cfg.InputFile)
	if err != nil {
		exitWithError("conversion failed", err)
	}

	if err := pkg.Save(cfg.OutputFile); err != nil {
		exitWithError("failed to save package", err)
	}

	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
	}
	if info, err := os.Stat(cfg.OutputFile); err == nil {
		fields = append(fields, zap.String("package_size", progress.FormatBytes(info.Size())))
	}
	log.Info("Conversion complete", fields...)
}
