package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/osmpkg"
	"github.com/wegman-software/osmpkg-go/internal/pgload"
)

var (
	createIndexes bool
	dropExisting  bool
)

var loadCmd = &cobra.Command{
	Use:   "load <package.osmpkg>",
	Short: "Bulk-load a data package into PostgreSQL",
	Long: `Load the six package tables into PostgreSQL as osm_nodes, osm_node_tags,
osm_ways, osm_way_tags, osm_relation_members and osm_relation_tags.

Tables are loaded with parallel COPY streams; --create-indexes (default)
adds a b-tree index on the id column of each table afterwards.`,
	Args: cobra.ExactArgs(1),
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&createIndexes, "create-indexes", true, "Create id indexes after loading")
	loadCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop existing tables before loading")
}

func runLoad(cmd *cobra.Command, args []string) {
	log := logger.Get()

	pkg, err := osmpkg.Load(args[0])
	if err != nil {
		exitWithError("failed to load package", err)
	}

	log.Info("Starting PostgreSQL load",
		zap.String("package", args[0]),
		zap.String("database", cfg.DBName),
		zap.String("host", cfg.DBHost),
		zap.String("schema", cfg.DBSchema),
	)

	start := time.Now()

	ldr, err := pgload.NewLoader(cfg, dropExisting, createIndexes)
	if err != nil {
		exitWithError("failed to connect to PostgreSQL", err)
	}
	defer ldr.Close()

	stats, err := ldr.Run(cmd.Context(), pkg)
	if err != nil {
		exitWithError("load failed", err)
	}

	log.Info("Load complete",
		zap.Duration("duration", time.Since(start).Round(time.Second)),
		zap.Int64("rows", stats.RowsLoaded),
	)
}
