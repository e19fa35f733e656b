package osmpkg

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/wegman-software/osmpkg-go/internal/model"
)

func testPackage() *Package {
	return &Package{
		Nodes: []model.NodeRow{
			{ID: 1, Lon: 13.4094, Lat: 52.5208},
			{ID: 2, Lon: 13.3889, Lat: 52.5170},
			{ID: 3, Lon: 13.3777, Lat: 52.5163},
		},
		NodeTags: []model.TagRow{
			{OwnerID: 2, Key: "railway", Value: "station"},
			{OwnerID: 2, Key: "name", Value: "Hauptbahnhof"},
		},
		Ways: []model.EdgeRow{
			{WayID: 10, U: 1, V: 2},
			{WayID: 10, U: 2, V: 3},
		},
		WayTags: []model.TagRow{
			{OwnerID: 10, Key: "railway", Value: "rail"},
		},
		RelationMembers: []model.MemberRow{
			{RelationID: 100, Ref: 10, Type: "w", Role: ""},
			{RelationID: 100, Ref: 2, Type: "n", Role: "stop"},
		},
		RelationTags: []model.TagRow{
			{OwnerID: 100, Key: "route", Value: "train"},
		},
	}
}

func assertEqual(t *testing.T, a, b *Package) {
	t.Helper()
	if !reflect.DeepEqual(a.Nodes, b.Nodes) {
		t.Errorf("nodes differ: %+v vs %+v", a.Nodes, b.Nodes)
	}
	if !reflect.DeepEqual(a.NodeTags, b.NodeTags) {
		t.Errorf("node tags differ: %+v vs %+v", a.NodeTags, b.NodeTags)
	}
	if !reflect.DeepEqual(a.Ways, b.Ways) {
		t.Errorf("ways differ: %+v vs %+v", a.Ways, b.Ways)
	}
	if !reflect.DeepEqual(a.WayTags, b.WayTags) {
		t.Errorf("way tags differ: %+v vs %+v", a.WayTags, b.WayTags)
	}
	if !reflect.DeepEqual(a.RelationMembers, b.RelationMembers) {
		t.Errorf("relation members differ: %+v vs %+v", a.RelationMembers, b.RelationMembers)
	}
	if !reflect.DeepEqual(a.RelationTags, b.RelationTags) {
		t.Errorf("relation tags differ: %+v vs %+v", a.RelationTags, b.RelationTags)
	}
}

func TestRoundTrip(t *testing.T) {
	pkg := testPackage()
	path := filepath.Join(t.TempDir(), "test.osmpkg")

	if err := pkg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEqual(t, pkg, loaded)
}

func TestRoundTripEmptyTables(t *testing.T) {
	// A stream with zero entities of a kind yields empty tables, not
	// absent entries.
	pkg := &Package{
		Nodes: []model.NodeRow{{ID: 1, Lon: 0, Lat: 0}},
	}
	path := filepath.Join(t.TempDir(), "sparse.osmpkg")

	if err := pkg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(loaded.Nodes) != 1 {
		t.Errorf("expected 1 node row, got %d", len(loaded.Nodes))
	}
	for name, n := range loaded.RowCounts() {
		if name == model.TableNodes {
			continue
		}
		if n != 0 {
			t.Errorf("table %s: expected 0 rows, got %d", name, n)
		}
	}
}

func TestIdempotentSave(t *testing.T) {
	pkg := testPackage()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.osmpkg")
	pathB := filepath.Join(dir, "b.osmpkg")

	if err := pkg.Save(pathA); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	if err := pkg.Save(pathB); err != nil {
		t.Fatalf("Save b: %v", err)
	}

	loadedA, err := Load(pathA)
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	loadedB, err := Load(pathB)
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	assertEqual(t, loadedA, loadedB)
}

func TestLoadDoesNotMutateArchive(t *testing.T) {
	pkg := testPackage()
	path := filepath.Join(t.TempDir(), "test.osmpkg")
	if err := pkg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("Load modified the archive")
	}
}

// writeTar writes entries to a tar file in the given order.
func writeTar(t *testing.T, path string, names []string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	for _, name := range names {
		data := entries[name]
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(data)), ModTime: time.Now()}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

func encodedEntries(t *testing.T, pkg *Package) map[string][]byte {
	t.Helper()
	entries := map[string][]byte{}
	var err error
	if entries["nodes.parquet"], err = encodeNodes(pkg.Nodes); err != nil {
		t.Fatal(err)
	}
	if entries["node_tags.parquet"], err = encodeTags(model.TableNodeTags, pkg.NodeTags); err != nil {
		t.Fatal(err)
	}
	if entries["ways.parquet"], err = encodeEdges(pkg.Ways); err != nil {
		t.Fatal(err)
	}
	if entries["way_tags.parquet"], err = encodeTags(model.TableWayTags, pkg.WayTags); err != nil {
		t.Fatal(err)
	}
	if entries["relation_members.parquet"], err = encodeMembers(pkg.RelationMembers); err != nil {
		t.Fatal(err)
	}
	if entries["relation_tags.parquet"], err = encodeTags(model.TableRelationTags, pkg.RelationTags); err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestMissingEntry(t *testing.T) {
	pkg := testPackage()
	entries := encodedEntries(t, pkg)

	for _, missing := range model.TableNames {
		var names []string
		for name := range entries {
			if name != missing+".parquet" {
				names = append(names, name)
			}
		}

		path := filepath.Join(t.TempDir(), "stripped.osmpkg")
		writeTar(t, path, names, entries)

		_, err := Load(path)
		if err == nil {
			t.Fatalf("expected error for missing %s", missing)
		}
		var missErr *MissingEntryError
		if !errors.As(err, &missErr) {
			t.Fatalf("expected MissingEntryError, got %T: %v", err, err)
		}
		if missErr.Entry != missing {
			t.Errorf("error names %q, want %q", missErr.Entry, missing)
		}
	}
}

func TestSchemaMismatch(t *testing.T) {
	pkg := testPackage()
	entries := encodedEntries(t, pkg)

	// Put a tag-table blob where the nodes table belongs.
	entries["nodes.parquet"] = entries["node_tags.parquet"]

	path := filepath.Join(t.TempDir(), "bad.osmpkg")
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	writeTar(t, path, names, entries)

	_, err := Load(path)
	var schemaErr *SchemaMismatchError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaMismatchError, got %T: %v", err, err)
	}
	if schemaErr.Entry != model.TableNodes {
		t.Errorf("error names entry %q, want %q", schemaErr.Entry, model.TableNodes)
	}
	if schemaErr.Expected == "" || schemaErr.Found == "" {
		t.Error("error must carry expected and found shapes")
	}
}

func TestUnknownEntryIgnored(t *testing.T) {
	pkg := testPackage()
	entries := encodedEntries(t, pkg)
	entries["manifest.json"] = []byte(`{"version": 2}`)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	path := filepath.Join(t.TempDir(), "extra.osmpkg")
	writeTar(t, path, names, entries)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEqual(t, pkg, loaded)
}

func TestSummary(t *testing.T) {
	pkg := testPackage()
	s := pkg.Summary()

	if !strings.Contains(s, "3 rows") || !strings.Contains(s, "2 edge rows") || !strings.Contains(s, "2 member rows") {
		t.Errorf("summary missing counts:\n%s", s)
	}
	if len(strings.Split(s, "\n")) < 3 {
		t.Errorf("summary should be multi-line:\n%s", s)
	}
}

func TestRowCounts(t *testing.T) {
	pkg := testPackage()
	counts := pkg.RowCounts()

	want := map[string]int{
		model.TableNodes:           3,
		model.TableNodeTags:        2,
		model.TableWays:            2,
		model.TableWayTags:         1,
		model.TableRelationMembers: 2,
		model.TableRelationTags:    1,
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("RowCounts() = %v, want %v", counts, want)
	}
}

func TestFailedSaveLeavesNoPartialFile(t *testing.T) {
	pkg := testPackage()
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-subdir", "out.osmpkg")

	if err := pkg.Save(path); err == nil {
		t.Fatal("expected error saving into a missing directory")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(matches) != 0 {
		t.Errorf("failed save left files behind: %v", matches)
	}
}
