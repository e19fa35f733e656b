// Package convert implements the single-pass transformation of an OSM
// PBF stream into the six package tables.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpkg-go/internal/idindex"
	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/model"
	"github.com/wegman-software/osmpkg-go/internal/osmpkg"
	"github.com/wegman-software/osmpkg-go/internal/progress"
)

// DecodeError indicates that the source stream could not be parsed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnresolvedRefError indicates that a way references a node id that never
// appeared in the stream. Only produced when reference checking is on.
type UnresolvedRefError struct {
	WayID  int64
	NodeID int64
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("way %d references node %d which never appeared in the stream", e.WayID, e.NodeID)
}

// Stats holds conversion statistics.
type Stats struct {
	Nodes     int64
	Ways      int64
	Relations int64
	BytesRead int64
}

// Options configures a conversion pass.
type Options struct {
	// Reporter receives progress counters; nil means no reporting.
	Reporter progress.Reporter
	// ProgressEvery is the number of entities between reports.
	ProgressEvery int
	// CheckRefs enables the optional node-reference validation pass.
	CheckRefs bool
	// ScratchDir holds the validation index; defaults to os.TempDir().
	ScratchDir string
}

// Converter accumulates a package from an entity stream. One pass, one
// goroutine: rows land in stream order.
type Converter struct {
	opts     Options
	reporter progress.Reporter
	pkg      *osmpkg.Package
	stats    Stats
	seen     int64
	refs     *idindex.Bitset

	// node-typed relation members referencing unseen nodes; warned, not
	// fatal, since filtered extracts routinely drop members
	danglingMembers int64
}

// New creates a converter. Run may be called once.
func New(opts Options) *Converter {
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 8192
	}
	return &Converter{
		opts:     opts,
		reporter: opts.Reporter,
		pkg:      &osmpkg.Package{},
	}
}

// Run reads the PBF file at path and returns the finished package. On any
// error the partially-built tables are discarded.
func (c *Converter) Run(ctx context.Context, path string) (*osmpkg.Package, *Stats, error) {
	log := logger.Get()

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		c.stats.BytesRead = info.Size()
	}

	if c.opts.CheckRefs {
		dir := c.opts.ScratchDir
		if dir == "" {
			dir = os.TempDir()
		}
		c.refs, err = idindex.New(filepath.Join(dir, "osmpkg-refs.bin"))
		if err != nil {
			return nil, nil, err
		}
		defer func() {
			c.refs.Close()
			c.refs = nil
		}()
	}

	// The scanner decodes blocks in parallel but yields entities in file
	// order, so the visit loop below stays strictly sequential.
	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	for scanner.Scan() {
		if err := c.visit(scanner.Object()); err != nil {
			return nil, nil, err
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, nil, &DecodeError{Path: path, Err: err}
	}

	c.report()

	if c.danglingMembers > 0 {
		log.Warn("Relation members reference nodes absent from the stream",
			zap.Int64("members", c.danglingMembers))
	}

	log.Debug("Conversion pass complete",
		zap.Int64("nodes", c.stats.Nodes),
		zap.Int64("ways", c.stats.Ways),
		zap.Int64("relations", c.stats.Relations))

	return c.pkg, &c.stats, nil
}

// visit dispatches one decoded entity to its table builder.
func (c *Converter) visit(obj osm.Object) error {
	switch o := obj.(type) {
	case *osm.Node:
		c.appendNode(o)
	case *osm.Way:
		if err := c.appendWay(o); err != nil {
			return err
		}
	case *osm.Relation:
		c.appendRelation(o)
	default:
		return nil // bounds, changesets etc. are not tabulated
	}

	c.seen++
	if c.seen%int64(c.opts.ProgressEvery) == 0 {
		c.report()
	}
	return nil
}

func (c *Converter) appendNode(n *osm.Node) {
	id := int64(n.ID)
	c.pkg.Nodes = append(c.pkg.Nodes, model.NodeRow{ID: id, Lon: n.Lon, Lat: n.Lat})
	for _, t := range n.Tags {
		c.pkg.NodeTags = append(c.pkg.NodeTags, model.TagRow{OwnerID: id, Key: t.Key, Value: t.Value})
	}
	if c.refs != nil {
		c.refs.Mark(id)
	}
	c.stats.Nodes++
}

func (c *Converter) appendWay(w *osm.Way) error {
	id := int64(w.ID)

	// Consecutive node references become directed edge rows; fewer than
	// two references contribute no rows.
	for i := 0; i+1 < len(w.Nodes); i++ {
		u, v := int64(w.Nodes[i].ID), int64(w.Nodes[i+1].ID)
		if c.refs != nil {
			if !c.refs.Has(u) {
				return &UnresolvedRefError{WayID: id, NodeID: u}
			}
			if !c.refs.Has(v) {
				return &UnresolvedRefError{WayID: id, NodeID: v}
			}
		}
		c.pkg.Ways = append(c.pkg.Ways, model.EdgeRow{WayID: id, U: u, V: v})
	}
	for _, t := range w.Tags {
		c.pkg.WayTags = append(c.pkg.WayTags, model.TagRow{OwnerID: id, Key: t.Key, Value: t.Value})
	}
	c.stats.Ways++
	return nil
}

func (c *Converter) appendRelation(r *osm.Relation) {
	id := int64(r.ID)
	for _, m := range r.Members {
		c.pkg.RelationMembers = append(c.pkg.RelationMembers, model.MemberRow{
			RelationID: id,
			Ref:        m.Ref,
			Type:       memberType(m.Type),
			Role:       m.Role,
		})
		if c.refs != nil && m.Type == osm.TypeNode && !c.refs.Has(m.Ref) {
			c.danglingMembers++
		}
	}
	for _, t := range r.Tags {
		c.pkg.RelationTags = append(c.pkg.RelationTags, model.TagRow{OwnerID: id, Key: t.Key, Value: t.Value})
	}
	c.stats.Relations++
}

func (c *Converter) report() {
	c.reporter.Report(map[string]int64{
		"nodes":     c.stats.Nodes,
		"ways":      c.stats.Ways,
		"relations": c.stats.Relations,
	})
}

func memberType(t osm.Type) string {
	switch t {
	case osm.TypeNode:
		return model.MemberNode
	case osm.TypeWay:
		return model.MemberWay
	case osm.TypeRelation:
		return model.MemberRelation
	}
	return string(t)
}

// DefaultOutputPath derives the package path from the input path by
// extension substitution: x.osm.pbf -> x.osmpkg.
func DefaultOutputPath(input string) string {
	if strings.HasSuffix(input, ".osm.pbf") {
		return strings.TrimSuffix(input, ".osm.pbf") + ".osmpkg"
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".osmpkg"
}
