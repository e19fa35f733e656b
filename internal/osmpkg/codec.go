package osmpkg

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpkg-go/internal/logger"
	"github.com/wegman-software/osmpkg-go/internal/model"
)

// The archive is a tar file holding one Parquet entry per table. The
// compression lives inside each entry (zstd column chunks), so the
// container itself stays uncompressed and seekable.

const entrySuffix = ".parquet"

func tableSchema(name string) *arrow.Schema {
	switch name {
	case model.TableNodes:
		return arrow.NewSchema([]arrow.Field{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "lon", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
			{Name: "lat", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
		}, nil)
	case model.TableWays:
		return arrow.NewSchema([]arrow.Field{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "u", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "v", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		}, nil)
	case model.TableRelationMembers:
		return arrow.NewSchema([]arrow.Field{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "ref", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "type", Type: arrow.BinaryTypes.String, Nullable: false},
			{Name: "role", Type: arrow.BinaryTypes.String, Nullable: false},
		}, nil)
	case model.TableNodeTags, model.TableWayTags, model.TableRelationTags:
		return arrow.NewSchema([]arrow.Field{
			{Name: "owner_id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
			{Name: "key", Type: arrow.BinaryTypes.String, Nullable: false},
			{Name: "value", Type: arrow.BinaryTypes.String, Nullable: false},
		}, nil)
	}
	panic("unknown table " + name)
}

func schemaString(s *arrow.Schema) string {
	parts := make([]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		parts = append(parts, f.Name+":"+f.Type.String())
	}
	return strings.Join(parts, ", ")
}

// encodeParquet serializes rows into a zstd-compressed Parquet blob.
// fill appends every row to the record builder.
func encodeParquet(schema *arrow.Schema, nrows int, fill func(b *array.RecordBuilder)) ([]byte, error) {
	var buf bytes.Buffer

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	w, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, err
	}

	if nrows > 0 {
		b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		fill(b)
		rec := b.NewRecord()
		err = w.Write(rec)
		rec.Release()
		b.Release()
		if err != nil {
			w.Close()
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeParquet reads an entry back into an arrow table and verifies its
// column layout against the expected table schema.
func decodeParquet(entry string, data []byte) (arrow.Table, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %q: %w", entry, err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %q: %w", entry, err)
	}

	tbl, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to decode entry %q: %w", entry, err)
	}

	want := tableSchema(entry)
	got := tbl.Schema()
	ok := len(got.Fields()) == len(want.Fields())
	if ok {
		for i, f := range want.Fields() {
			g := got.Field(i)
			if g.Name != f.Name || g.Type.ID() != f.Type.ID() {
				ok = false
				break
			}
		}
	}
	if !ok {
		tbl.Release()
		return nil, &SchemaMismatchError{
			Entry:    entry,
			Expected: schemaString(want),
			Found:    schemaString(got),
		}
	}

	return tbl, nil
}

func encodeNodes(rows []model.NodeRow) ([]byte, error) {
	return encodeParquet(tableSchema(model.TableNodes), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.ID)
			b.Field(1).(*array.Float64Builder).Append(r.Lon)
			b.Field(2).(*array.Float64Builder).Append(r.Lat)
		}
	})
}

func encodeEdges(rows []model.EdgeRow) ([]byte, error) {
	return encodeParquet(tableSchema(model.TableWays), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.WayID)
			b.Field(1).(*array.Int64Builder).Append(r.U)
			b.Field(2).(*array.Int64Builder).Append(r.V)
		}
	})
}

func encodeMembers(rows []model.MemberRow) ([]byte, error) {
	return encodeParquet(tableSchema(model.TableRelationMembers), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.RelationID)
			b.Field(1).(*array.Int64Builder).Append(r.Ref)
			b.Field(2).(*array.StringBuilder).Append(r.Type)
			b.Field(3).(*array.StringBuilder).Append(r.Role)
		}
	})
}

func encodeTags(table string, rows []model.TagRow) ([]byte, error) {
	return encodeParquet(tableSchema(table), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.OwnerID)
			b.Field(1).(*array.StringBuilder).Append(r.Key)
			b.Field(2).(*array.StringBuilder).Append(r.Value)
		}
	})
}

func decodeNodes(data []byte) ([]model.NodeRow, error) {
	tbl, err := decodeParquet(model.TableNodes, data)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	rows := make([]model.NodeRow, 0, tbl.NumRows())
	ids := tbl.Column(0).Data()
	lons := tbl.Column(1).Data()
	lats := tbl.Column(2).Data()
	for ci := range ids.Chunks() {
		idc := ids.Chunk(ci).(*array.Int64)
		lonc := lons.Chunk(ci).(*array.Float64)
		latc := lats.Chunk(ci).(*array.Float64)
		for i := 0; i < idc.Len(); i++ {
			rows = append(rows, model.NodeRow{ID: idc.Value(i), Lon: lonc.Value(i), Lat: latc.Value(i)})
		}
	}
	return rows, nil
}

func decodeEdges(data []byte) ([]model.EdgeRow, error) {
	tbl, err := decodeParquet(model.TableWays, data)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	rows := make([]model.EdgeRow, 0, tbl.NumRows())
	ids := tbl.Column(0).Data()
	us := tbl.Column(1).Data()
	vs := tbl.Column(2).Data()
	for ci := range ids.Chunks() {
		idc := ids.Chunk(ci).(*array.Int64)
		uc := us.Chunk(ci).(*array.Int64)
		vc := vs.Chunk(ci).(*array.Int64)
		for i := 0; i < idc.Len(); i++ {
			rows = append(rows, model.EdgeRow{WayID: idc.Value(i), U: uc.Value(i), V: vc.Value(i)})
		}
	}
	return rows, nil
}

func decodeMembers(data []byte) ([]model.MemberRow, error) {
	tbl, err := decodeParquet(model.TableRelationMembers, data)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	rows := make([]model.MemberRow, 0, tbl.NumRows())
	ids := tbl.Column(0).Data()
	refs := tbl.Column(1).Data()
	types := tbl.Column(2).Data()
	roles := tbl.Column(3).Data()
	for ci := range ids.Chunks() {
		idc := ids.Chunk(ci).(*array.Int64)
		refc := refs.Chunk(ci).(*array.Int64)
		typec := types.Chunk(ci).(*array.String)
		rolec := roles.Chunk(ci).(*array.String)
		for i := 0; i < idc.Len(); i++ {
			rows = append(rows, model.MemberRow{
				RelationID: idc.Value(i),
				Ref:        refc.Value(i),
				Type:       typec.Value(i),
				Role:       rolec.Value(i),
			})
		}
	}
	return rows, nil
}

func decodeTags(table string, data []byte) ([]model.TagRow, error) {
	tbl, err := decodeParquet(table, data)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	rows := make([]model.TagRow, 0, tbl.NumRows())
	owners := tbl.Column(0).Data()
	keys := tbl.Column(1).Data()
	values := tbl.Column(2).Data()
	for ci := range owners.Chunks() {
		ownerc := owners.Chunk(ci).(*array.Int64)
		keyc := keys.Chunk(ci).(*array.String)
		valuec := values.Chunk(ci).(*array.String)
		for i := 0; i < ownerc.Len(); i++ {
			rows = append(rows, model.TagRow{
				OwnerID: ownerc.Value(i),
				Key:     keyc.Value(i),
				Value:   valuec.Value(i),
			})
		}
	}
	return rows, nil
}

// writeArchive writes the named blobs as a tar file. The archive is
// written to a temporary file next to path and renamed on success, so a
// failed save never leaves a file that validates as loadable.
func writeArchive(path string, entries map[string][]byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".osmpkg-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	tw := tar.NewWriter(tmp)
	now := time.Now()
	for _, name := range model.TableNames {
		data := entries[name]
		hdr := &tar.Header{
			Name:    name + entrySuffix,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: now,
		}
		if err = tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write entry header %q: %w", name, err)
		}
		if _, err = tw.Write(data); err != nil {
			return fmt.Errorf("failed to write entry %q: %w", name, err)
		}
	}
	if err = tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// readArchive reads all recognized table entries from a tar archive.
// Unknown entries are skipped with a warning so future format revisions
// can add entries compatibly.
func readArchive(path string) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	known := make(map[string]bool, len(model.TableNames))
	for _, name := range model.TableNames {
		known[name] = true
	}

	entries := make(map[string][]byte, len(model.TableNames))
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive %q: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := strings.TrimSuffix(hdr.Name, entrySuffix)
		if !strings.HasSuffix(hdr.Name, entrySuffix) || !known[name] {
			logger.Get().Warn("Ignoring unknown package entry", zap.String("entry", hdr.Name))
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %q: %w", hdr.Name, err)
		}
		entries[name] = data
	}
	return entries, nil
}
