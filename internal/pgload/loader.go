// Package pgload bulk-loads a package into PostgreSQL for SQL-side
// analysis. The six tables are loaded in parallel COPY streams; row order
// within each table follows the package.
package pgload

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osmpkg-go/internal/config"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/model"
	"github.com/wegman-software/osmpkg-go/internal/osmpkg"
)

// Stats holds load statistics.
type Stats struct {
	RowsLoaded int64
}

// Loader writes package tables into PostgreSQL.
type Loader struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	dropExisting  bool
	createIndexes bool
}

// NewLoader connects to PostgreSQL using the configured settings.
func NewLoader(cfg *config.Config, dropExisting, createIndexes bool) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Workers)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{
		cfg:           cfg,
		pool:          pool,
		dropExisting:  dropExisting,
		createIndexes: createIndexes,
	}, nil
}

// Close closes the connection pool.
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

// table describes one target table: DDL column list, COPY columns, the id
// column to index, and a row materializer.
type table struct {
	name     string
	columns  string
	copyCols []string
	idCol    string
	rows     func(p *osmpkg.Package) [][]any
}

var tables = []table{
	{
		name:     model.TableNodes,
		columns:  "id BIGINT NOT NULL, lon DOUBLE PRECISION NOT NULL, lat DOUBLE PRECISION NOT NULL",
		copyCols: []string{"id", "lon", "lat"},
		idCol:    "id",
		rows: func(p *osmpkg.Package) [][]any {
			rows := make([][]any, len(p.Nodes))
			for i, r := range p.Nodes {
				rows[i] = []any{r.ID, r.Lon, r.Lat}
			}
			return rows
		},
	},
	{
		name:     model.TableNodeTags,
		columns:  "owner_id BIGINT NOT NULL, key TEXT NOT NULL, value TEXT NOT NULL",
		copyCols: []string{"owner_id", "key", "value"},
		idCol:    "owner_id",
		rows:     func(p *osmpkg.Package) [][]any { return tagRows(p.NodeTags) },
	},
	{
		name:     model.TableWays,
		columns:  "id BIGINT NOT NULL, u BIGINT NOT NULL, v BIGINT NOT NULL",
		copyCols: []string{"id", "u", "v"},
		idCol:    "id",
		rows: func(p *osmpkg.Package) [][]any {
			rows := make([][]any, len(p.Ways))
			for i, r := range p.Ways {
				rows[i] = []any{r.WayID, r.U, r.V}
			}
			return rows
		},
	},
	{
		name:     model.TableWayTags,
		columns:  "owner_id BIGINT NOT NULL, key TEXT NOT NULL, value TEXT NOT NULL",
		copyCols: []string{"owner_id", "key", "value"},
		idCol:    "owner_id",
		rows:     func(p *osmpkg.Package) [][]any { return tagRows(p.WayTags) },
	},
	{
		name:     model.TableRelationMembers,
		columns:  "id BIGINT NOT NULL, ref BIGINT NOT NULL, type CHAR(1) NOT NULL, role TEXT NOT NULL",
		copyCols: []string{"id", "ref", "type", "role"},
		idCol:    "id",
		rows: func(p *osmpkg.Package) [][]any {
			rows := make([][]any, len(p.RelationMembers))
			for i, r := range p.RelationMembers {
				rows[i] = []any{r.RelationID, r.Ref, r.Type, r.Role}
			}
			return rows
		},
	},
	{
		name:     model.TableRelationTags,
		columns:  "owner_id BIGINT NOT NULL, key TEXT NOT NULL, value TEXT NOT NULL",
		copyCols: []string{"owner_id", "key", "value"},
		idCol:    "owner_id",
		rows:     func(p *osmpkg.Package) [][]any { return tagRows(p.RelationTags) },
	},
}

func tagRows(tags []model.TagRow) [][]any {
	rows := make([][]any, len(tags))
	for i, r := range tags {
		rows[i] = []any{r.OwnerID, r.Key, r.Value}
	}
	return rows
}

// Run loads all six tables, in parallel, then optionally creates id
// indexes.
func (l *Loader) Run(ctx context.Context, pkg *osmpkg.Package) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{}

	if l.cfg.DBSchema != "public" {
		if _, err := l.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", l.cfg.DBSchema)); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	counts := make([]int64, len(tables))

	for i, tbl := range tables {
		g.Go(func() error {
			count, err := l.loadTable(gctx, tbl, pkg)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", tbl.name, err)
			}
			counts[i] = count
			log.Info("Table loaded", zap.String("table", tbl.name), zap.Int64("rows", count))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.RowsLoaded += c
	}

	if l.createIndexes {
		log.Info("Creating indexes")
		g, gctx := errgroup.WithContext(ctx)
		for _, tbl := range tables {
			g.Go(func() error {
				return l.createIndex(gctx, tbl)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return stats, nil
}

func (l *Loader) qualified(name string) string {
	return fmt.Sprintf("%s.osm_%s", l.cfg.DBSchema, name)
}

func (l *Loader) loadTable(ctx context.Context, tbl table, pkg *osmpkg.Package) (int64, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	fullName := l.qualified(tbl.name)

	if l.dropExisting {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", fullName)); err != nil {
			return 0, fmt.Errorf("failed to drop table: %w", err)
		}
	}

	// UNLOGGED while loading, converted afterwards
	createSQL := fmt.Sprintf("CREATE UNLOGGED TABLE IF NOT EXISTS %s (%s)", fullName, tbl.columns)
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("TRUNCATE %s", fullName)); err != nil {
		return 0, fmt.Errorf("failed to truncate table: %w", err)
	}

	count, err := conn.CopyFrom(
		ctx,
		pgx.Identifier{l.cfg.DBSchema, "osm_" + tbl.name},
		tbl.copyCols,
		pgx.CopyFromRows(tbl.rows(pkg)),
	)
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s SET LOGGED", fullName)); err != nil {
		// Non-fatal: the data is in, durability conversion can be redone.
		logger.Get().Debug("SET LOGGED failed", zap.String("table", fullName), zap.Error(err))
	}

	return count, nil
}

func (l *Loader) createIndex(ctx context.Context, tbl table) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	fullName := l.qualified(tbl.name)
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS osm_%s_%s_idx ON %s (%s)",
		tbl.name, tbl.idCol, fullName, tbl.idCol)
	if _, err := conn.Exec(ctx, idx); err != nil {
		return err
	}
	_, err = conn.Exec(ctx, fmt.Sprintf("ANALYZE %s", fullName))
	return err
}
