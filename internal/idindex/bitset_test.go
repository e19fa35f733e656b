package idindex

import (
	"path/filepath"
	"testing"
)

func TestMarkHas(t *testing.T) {
	idx, err := New(filepath.Join(t.TempDir(), "ids.bin"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	ids := []int64{0, 1, 7, 8, 12345, 4_294_967_296, maxID - 1}
	for _, id := range ids {
		idx.Mark(id)
	}
	for _, id := range ids {
		if !idx.Has(id) {
			t.Errorf("Has(%d) = false after Mark", id)
		}
	}

	for _, id := range []int64{2, 9, 12346, maxID - 2} {
		if idx.Has(id) {
			t.Errorf("Has(%d) = true, never marked", id)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	idx, err := New(filepath.Join(t.TempDir(), "ids.bin"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer idx.Close()

	idx.Mark(-1)
	idx.Mark(maxID)
	if idx.Has(-1) || idx.Has(maxID) {
		t.Error("out-of-range ids must never report as marked")
	}
}
