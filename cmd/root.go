package cmd

import (
	"os"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/config"
	"github.com/wegman-software/osmpkg-go/internal/logger"
)

var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "osmpkg",
	Short: "Convert OSM PBF extracts into columnar data packages",
	Long: `osmpkg converts OpenStreetMap PBF extracts into a single-file package
of six Parquet tables (nodes, node_tags, ways, way_tags, relation_members,
relation_tags) suitable for analytical queries.

Ways are stored as directed edge lists (one row per consecutive node
pair); tags are stored as one row per key/value pair, keyed by owning id.

Typical workflow:
  osmpkg check                          # verify osmium is installed
  osmpkg filter planet.osm.pbf          # pre-filter with osmium tags-filter
  osmpkg convert planet-railway.osm.pbf # build the .osmpkg package
  osmpkg info planet-railway.osmpkg     # print table counts
  osmpkg load planet-railway.osmpkg     # bulk-load into PostgreSQL`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(cfg.Verbose, cfg.LogFile)
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&cfg.MetricsInterval, "metrics-interval", 0, "Interval for system metrics logging, 0 disables (e.g. 10s, 1m)")

	// Database flags for the load command
	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Parallel COPY streams for load")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
