package idindex

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Maximum id we track. OSM node ids are past 12 billion; 16 billion gives
// headroom at 2GB of address space, and the backing file is sparse so disk
// usage stays proportional to the ids actually marked.
const maxID = 16_000_000_000

// Bitset is a file-backed presence bitset over entity ids, used to check
// that way edges reference nodes that actually appeared in the stream.
// One bit per id at offset id/8; lookups and marks are O(1).
type Bitset struct {
	file *os.File
	data mmap.MMap
	path string
}

// New creates a bitset backed by a sparse file at path. The file is
// removed on Close.
func New(path string) (*Bitset, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create index file: %w", err)
	}

	size := int64(maxID / 8)
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to size index file: %w", err)
	}

	data, err := mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to mmap index file: %w", err)
	}

	return &Bitset{file: f, data: data, path: path}, nil
}

// Mark records id as seen. Out-of-range ids are ignored.
func (b *Bitset) Mark(id int64) {
	if id < 0 || id >= maxID {
		return
	}
	b.data[id>>3] |= 1 << uint(id&7)
}

// Has reports whether id was marked.
func (b *Bitset) Has(id int64) bool {
	if id < 0 || id >= maxID {
		return false
	}
	return b.data[id>>3]&(1<<uint(id&7)) != 0
}

// Close unmaps and removes the backing file.
func (b *Bitset) Close() error {
	err := b.data.Unmap()
	if cerr := b.file.Close(); err == nil {
		err = cerr
	}
	os.Remove(b.path)
	return err
}
