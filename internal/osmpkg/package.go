// Package osmpkg holds the tabular representation of an OSM extract and
// its single-file archive format: six Parquet tables (nodes, node_tags,
// ways, way_tags, relation_members, relation_tags) in a tar container,
// conventionally named *.osmpkg.
package osmpkg

import (
	"fmt"
	"strings"

	"github.com/wegman-software/osmpkg-go/internal/model"
)

// Package is the in-memory aggregate of the six tables. Tables are
// populated once, by a conversion pass or by Load, and treated as
// read-only afterwards. Row order is stream order throughout.
type Package struct {
	Nodes           []model.NodeRow
	NodeTags        []model.TagRow
	Ways            []model.EdgeRow
	WayTags         []model.TagRow
	RelationMembers []model.MemberRow
	RelationTags    []model.TagRow
}

// RowCounts returns the number of rows per table, keyed by table name.
func (p *Package) RowCounts() map[string]int {
	return map[string]int{
		model.TableNodes:           len(p.Nodes),
		model.TableNodeTags:        len(p.NodeTags),
		model.TableWays:            len(p.Ways),
		model.TableWayTags:         len(p.WayTags),
		model.TableRelationMembers: len(p.RelationMembers),
		model.TableRelationTags:    len(p.RelationTags),
	}
}

// Summary returns a human-readable multi-line description of the package.
func (p *Package) Summary() string {
	var b strings.Builder
	b.WriteString("OSM data package\n")
	fmt.Fprintf(&b, "  nodes:     %d rows, %d tag rows\n", len(p.Nodes), len(p.NodeTags))
	fmt.Fprintf(&b, "  ways:      %d edge rows, %d tag rows\n", len(p.Ways), len(p.WayTags))
	fmt.Fprintf(&b, "  relations: %d member rows, %d tag rows", len(p.RelationMembers), len(p.RelationTags))
	return b.String()
}

// Save writes the package to path as a tar archive of six Parquet
// entries. The archive is written to a temporary file and renamed into
// place on success; Save never mutates the tables.
func (p *Package) Save(path string) error {
	entries := make(map[string][]byte, len(model.TableNames))

	var err error
	if entries[model.TableNodes], err = encodeNodes(p.Nodes); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableNodes, err)
	}
	if entries[model.TableNodeTags], err = encodeTags(model.TableNodeTags, p.NodeTags); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableNodeTags, err)
	}
	if entries[model.TableWays], err = encodeEdges(p.Ways); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableWays, err)
	}
	if entries[model.TableWayTags], err = encodeTags(model.TableWayTags, p.WayTags); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableWayTags, err)
	}
	if entries[model.TableRelationMembers], err = encodeMembers(p.RelationMembers); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableRelationMembers, err)
	}
	if entries[model.TableRelationTags], err = encodeTags(model.TableRelationTags, p.RelationTags); err != nil {
		return fmt.Errorf("failed to encode %s: %w", model.TableRelationTags, err)
	}

	return writeArchive(path, entries)
}

// Load reads a package archive from path. All six entries must be
// present; the first absent one (in canonical table order) is reported
// via MissingEntryError. The source archive is never modified.
func Load(path string) (*Package, error) {
	entries, err := readArchive(path)
	if err != nil {
		return nil, err
	}

	for _, name := range model.TableNames {
		if _, ok := entries[name]; !ok {
			return nil, &MissingEntryError{Entry: name}
		}
	}

	pkg := &Package{}
	if pkg.Nodes, err = decodeNodes(entries[model.TableNodes]); err != nil {
		return nil, err
	}
	if pkg.NodeTags, err = decodeTags(model.TableNodeTags, entries[model.TableNodeTags]); err != nil {
		return nil, err
	}
	if pkg.Ways, err = decodeEdges(entries[model.TableWays]); err != nil {
		return nil, err
	}
	if pkg.WayTags, err = decodeTags(model.TableWayTags, entries[model.TableWayTags]); err != nil {
		return nil, err
	}
	if pkg.RelationMembers, err = decodeMembers(entries[model.TableRelationMembers]); err != nil {
		return nil, err
	}
	if pkg.RelationTags, err = decodeTags(model.TableRelationTags, entries[model.TableRelationTags]); err != nil {
		return nil, err
	}
	return pkg, nil
}
