package osmium

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputPath(t *testing.T) {
	cases := []struct {
		input  string
		suffix string
		want   string
	}{
		{"berlin.osm.pbf", "-railway", "berlin-railway.osm.pbf"},
		{"data/berlin.osm.pbf", "-railway", "data/berlin-railway.osm.pbf"},
		{"extract.pbf", "-rail", "extract-rail.osm.pbf"},
		{"berlin.osm.pbf", "-x", "berlin-x.osm.pbf"},
	}
	for _, c := range cases {
		if got := OutputPath(c.input, c.suffix); got != c.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", c.input, c.suffix, got, c.want)
		}
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `suffix: "-highways"
expressions:
  - nwr/highway
  - r/route=road
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Suffix != "-highways" {
		t.Errorf("suffix = %q", p.Suffix)
	}
	if len(p.Expressions) != 2 || p.Expressions[0] != "nwr/highway" {
		t.Errorf("expressions = %v", p.Expressions)
	}
}

func TestLoadProfileDefaultsSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("expressions: [nwr/railway]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Suffix != "-filtered" {
		t.Errorf("suffix = %q, want default", p.Suffix)
	}
}

func TestLoadProfileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("suffix: -x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadProfile(path); err == nil {
		t.Fatal("expected error for profile without expressions")
	}
}

func TestTagsFilterRefusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "berlin.osm.pbf")
	output := filepath.Join(dir, "berlin-railway.osm.pbf")
	for _, p := range []string{input, output} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := TagsFilter(t.Context(), input, FilterOptions{})
	existsErr, ok := err.(*OutputExistsError)
	if !ok {
		t.Fatalf("expected *OutputExistsError, got %T: %v", err, err)
	}
	if existsErr.Path != output {
		t.Errorf("error path = %q, want %q", existsErr.Path, output)
	}
}
