// Package snapshot implements the engine's best-effort persistence
// boundary: periodic column dumps of a table's current rows, not a
// write-ahead log. On-disk durability is a boundary concern, kept outside
// the core table/query/page-range packages; this package is the external
// collaborator that boundary talks to.
//
// A bbolt-backed manifest records, per table, the most recent snapshot's
// metadata (row count, schema, when it was taken); the row data itself is
// a snappy-compressed blob stored alongside it in the same database file.
// Restoring from a snapshot rebuilds a table by replaying Query.Insert for
// every row it contains — it is not a byte-for-byte page restore, so RIDs
// are reassigned on restore and any tail history is collapsed to each
// row's current value.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/snappy"
	"go.etcd.io/bbolt"

	"github.com/coltab/lstore/query"
	"github.com/coltab/lstore/record"
	"github.com/coltab/lstore/table"
)

var (
	manifestBucket = []byte("tables")
	blobBucket     = []byte("blobs")
)

// Meta is one table's most recent snapshot record.
type Meta struct {
	Name             string    `json:"name"`
	NumColumns       int       `json:"num_columns"`
	PrimaryKeyColumn int       `json:"primary_key_column"`
	RowCount         int       `json:"row_count"`
	TakenAt          time.Time `json:"taken_at"`
	BlobKey          string    `json:"blob_key"`
}

// Store wraps a bbolt database file holding the snapshot manifest and blobs.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the snapshot store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("lstore snapshot: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(manifestBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(blobBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lstore snapshot: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save dumps every currently live row of t (values[PrimaryKeyColumn] in
// ascending order, full int64 range) into a new compressed blob and
// overwrites t's manifest entry to point at it.
func (s *Store) Save(t *table.Table) error {
	rows := collectRows(t)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int64(len(rows))); err != nil {
		return fmt.Errorf("lstore snapshot: encode row count: %w", err)
	}
	for _, row := range rows {
		for _, v := range row {
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("lstore snapshot: encode row: %w", err)
			}
		}
	}
	compressed := snappy.Encode(nil, buf.Bytes())

	blobKey := fmt.Sprintf("%s/%d", t.Name, time.Now().UnixNano())
	meta := Meta{
		Name:             t.Name,
		NumColumns:       t.NumColumns,
		PrimaryKeyColumn: t.PrimaryKeyColumn,
		RowCount:         len(rows),
		TakenAt:          time.Now(),
		BlobKey:          blobKey,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("lstore snapshot: encode manifest: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(blobBucket).Put([]byte(blobKey), compressed); err != nil {
			return err
		}
		return tx.Bucket(manifestBucket).Put([]byte(t.Name), metaBytes)
	})
}

// collectRows reads every live row's current user-column values, in
// ascending primary-key order.
func collectRows(t *table.Table) [][]int64 {
	var rows [][]int64
	for _, pk := range t.Index.RangeKeys(minInt64, maxInt64) {
		row, ok := t.Read(pk)
		if !ok {
			continue
		}
		cols := make([]int64, t.NumColumns)
		copy(cols, row[record.NumReservedColumns:])
		rows = append(rows, cols)
	}
	return rows
}

// Meta returns the manifest entry for tableName, if a snapshot was ever taken.
func (s *Store) Meta(tableName string) (Meta, bool) {
	var meta Meta
	var found bool
	s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(manifestBucket).Get([]byte(tableName))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &meta); err != nil {
			return err
		}
		found = true
		return nil
	})
	return meta, found
}

// Restore rebuilds tableName's rows by re-inserting every row from its
// most recent snapshot blob through q. It returns the number of rows
// restored. Rows are reinserted in the order the snapshot stored them;
// RIDs are freshly assigned by q's table, and any tail/version history
// that existed before the snapshot was taken is not recovered.
func (s *Store) Restore(q *query.Query) (int, error) {
	meta, ok := s.Meta(q.Table.Name)
	if !ok {
		return 0, nil
	}

	var compressed []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blobBucket).Get([]byte(meta.BlobKey))
		if v == nil {
			return fmt.Errorf("lstore snapshot: blob %s missing for table %s", meta.BlobKey, meta.Name)
		}
		compressed = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return 0, fmt.Errorf("lstore snapshot: decompress blob: %w", err)
	}
	reader := bytes.NewReader(raw)

	var rowCount int64
	if err := binary.Read(reader, binary.LittleEndian, &rowCount); err != nil {
		return 0, fmt.Errorf("lstore snapshot: decode row count: %w", err)
	}

	restored := 0
	for i := int64(0); i < rowCount; i++ {
		values := make([]int64, meta.NumColumns)
		for c := range values {
			if err := binary.Read(reader, binary.LittleEndian, &values[c]); err != nil {
				return restored, fmt.Errorf("lstore snapshot: decode row %d: %w", i, err)
			}
		}
		if _, err := q.Insert(values); err != nil {
			continue // primary key already present in the live table: skip, don't abort the restore
		}
		restored++
	}
	return restored, nil
}

const (
	minInt64 = -1 << 63
	maxInt64 = 1<<63 - 1
)
