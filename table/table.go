// Package table implements Table, the owner of one primary key column's
// worth of rows: a PageRange, a page directory mapping every live RID to
// the Record that locates its cells, and the primary/secondary Index.
package table

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coltab/lstore/config"
	"github.com/coltab/lstore/engineerr"
	"github.com/coltab/lstore/index"
	"github.com/coltab/lstore/metrics"
	"github.com/coltab/lstore/pagerange"
	"github.com/coltab/lstore/record"
)

// PageDirectory maps every RID — base or tail — written to the Record that
// locates its cells, until Table.Delete removes a deleted row's base RID.
// It satisfies pagerange.DirectoryReader.
type PageDirectory struct {
	mu sync.RWMutex
	m  map[int64]*record.Record
}

// NewPageDirectory returns an empty directory.
func NewPageDirectory() *PageDirectory {
	return &PageDirectory{m: make(map[int64]*record.Record)}
}

// Get returns the Record for rid, if it is still present.
func (d *PageDirectory) Get(rid int64) (*record.Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.m[rid]
	return r, ok
}

// Set records rid's Record, overwriting any previous entry.
func (d *PageDirectory) Set(rid int64, rec *record.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[rid] = rec
}

// Delete removes rid's entry, if any.
func (d *PageDirectory) Delete(rid int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, rid)
}

// Table owns one page range, its page directory, and its primary/secondary
// indexes. The zero value is not usable; construct with New.
type Table struct {
	Name             string
	PrimaryKeyColumn int
	NumColumns       int

	Range     *pagerange.PageRange
	Directory *PageDirectory
	Index     *index.Index

	// Metrics is optional — a nil Recorder makes Merge's ObserveMerge call a
	// no-op, same as Query.Metrics.
	Metrics *metrics.Recorder

	cfg config.Config
	log zerolog.Logger

	mu         sync.Mutex // guards numRecords / RID allocation
	numRecords int64
}

// New allocates an empty table for numColumns user columns, with
// primaryKeyColumn identifying which of those columns is unique.
func New(name string, numColumns, primaryKeyColumn int, cfg config.Config, log zerolog.Logger) *Table {
	tableLog := log.With().Str("table", name).Logger()
	return &Table{
		Name:             name,
		PrimaryKeyColumn: primaryKeyColumn,
		NumColumns:       numColumns,
		Range:            pagerange.New(numColumns, cfg.PageCapacity, cfg.LockTimeout, tableLog),
		Directory:        NewPageDirectory(),
		Index:            index.New(),
		cfg:              cfg,
		log:              tableLog,
	}
}

// NumRecords returns the count of RIDs ever allocated, base and tail alike
// (deleted rows still count — this is a monotonic RID counter, not a
// live-row count).
func (t *Table) NumRecords() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numRecords
}

func (t *Table) nextRID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	rid := t.numRecords
	t.numRecords++
	return rid
}

// Write inserts a new base row and indexes it by its primary-key column.
// It does not check for primary-key uniqueness — that is the Query layer's
// job, since Table has no notion of "duplicate".
func (t *Table) Write(values []int64) (*record.Record, error) {
	if len(values) != t.NumColumns {
		return nil, engineerr.ErrArityMismatch
	}
	rid := t.nextRID()
	rec, err := t.Range.Write(rid, values)
	if err != nil {
		return nil, err
	}
	t.Directory.Set(rid, rec)
	t.Index.Add(values[t.PrimaryKeyColumn], rid)
	return rec, nil
}

// ReadByRID returns the full row image stored at rid directly, following no
// indirection. Used by ReadBase, Read, ReadRelative, and Query.Select's
// secondary-index path.
func (t *Table) ReadByRID(rid int64) ([]int64, bool) {
	rec, ok := t.Directory.Get(rid)
	if !ok {
		return nil, false
	}
	row, err := t.Range.Read(rec)
	if err != nil {
		return nil, false
	}
	return row, true
}

// ReadBase returns pk's base-container row image as stored — its
// indirection cell may point at a newer tail, but this does not follow it.
func (t *Table) ReadBase(pk int64) ([]int64, bool) {
	rid, ok := t.Index.Get(pk)
	if !ok {
		return nil, false
	}
	return t.ReadByRID(rid)
}

// Read returns pk's current row image: the base row if it was never
// updated, otherwise the one hop into the tail container that its
// indirection cell names. This is also the LatestValueFunc logic secondary
// indexes are built from.
func (t *Table) Read(pk int64) ([]int64, bool) {
	base, ok := t.ReadBase(pk)
	if !ok {
		return nil, false
	}
	if base[record.RIDIndex] == base[record.IndirectionIndex] {
		return base, true
	}
	return t.ReadByRID(base[record.IndirectionIndex])
}

// LatestRID returns whichever RID is directly readable as pk's current row:
// the base RID if unmodified, else the latest tail RID. Secondary-index
// buckets are keyed on this RID, not on the base RID, because select
// resolves secondary matches via ReadByRID rather than by following
// indirection.
func (t *Table) LatestRID(pk int64) (int64, bool) {
	base, ok := t.ReadBase(pk)
	if !ok {
		return 0, false
	}
	if base[record.RIDIndex] == base[record.IndirectionIndex] {
		return base[record.RIDIndex], true
	}
	return base[record.IndirectionIndex], true
}

// latestValueFunc adapts Table's indirection-following read into the shape
// index.CreateSecondary needs: given a base RID (as stored in the primary
// index) and a column, resolve the RID currently holding that row's value
// and the value itself.
func (t *Table) latestValueFunc(col int) index.LatestValueFunc {
	return func(baseRID int64, _ int) (int64, int64, bool) {
		baseRec, ok := t.Directory.Get(baseRID)
		if !ok {
			return 0, 0, false
		}
		baseRow, err := t.Range.Read(baseRec)
		if err != nil {
			return 0, 0, false
		}
		if baseRow[record.RIDIndex] == baseRow[record.IndirectionIndex] {
			return baseRID, baseRow[record.NumReservedColumns+col], true
		}
		latestRID := baseRow[record.IndirectionIndex]
		latestRec, ok := t.Directory.Get(latestRID)
		if !ok {
			return 0, 0, false
		}
		latestRow, err := t.Range.Read(latestRec)
		if err != nil {
			return 0, 0, false
		}
		return latestRID, latestRow[record.NumReservedColumns+col], true
	}
}

// CreateSecondary builds a secondary index on col from the table's current
// contents.
func (t *Table) CreateSecondary(col int) {
	t.Index.CreateSecondary(col, t.latestValueFunc(col))
}

// DropSecondary removes the secondary index on col, if any.
func (t *Table) DropSecondary(col int) {
	t.Index.DropSecondary(col)
}

// ReadRelative returns the row image k versions back from pk's current
// value: k == 0 is the current value, k == -1 is the value one update ago,
// and so on. A request deeper than the row's history returns its oldest
// (base) image.
func (t *Table) ReadRelative(pk int64, k int64) ([]int64, bool) {
	base, ok := t.ReadBase(pk)
	if !ok {
		return nil, false
	}
	baseRID := base[record.RIDIndex]
	baseIndirection := base[record.IndirectionIndex]
	if baseRID == baseIndirection {
		return base, true
	}

	target := k
	if target < 0 {
		target = -target
	}

	cur := baseIndirection
	var walked int64
	for walked < target {
		row, ok := t.ReadByRID(cur)
		if !ok {
			return nil, false
		}
		prev := row[record.IndirectionIndex]
		if prev == baseRID {
			cur = baseRID
			break
		}
		cur = prev
		walked++
	}
	return t.ReadByRID(cur)
}

// Update appends a new tail image for pk, chaining it onto the current head
// of the version chain, and repoints the base record's indirection cell at
// it. newPK, if it differs from pk, renames the primary-key mapping in
// place — per the Open Questions resolution the primary index always maps
// to the base RID, so a primary-key rename never touches its value.
//
// Update does not itself maintain secondary indexes; callers update those
// using the old/new LatestRID and per-column values, since a rename must
// also move every registered secondary index's entry to the new latest RID
// even for columns whose value did not change.
func (t *Table) Update(pk int64, newPK int64, values []int64) (*record.Record, error) {
	if len(values) != t.NumColumns {
		return nil, engineerr.ErrArityMismatch
	}
	baseRID, ok := t.Index.Get(pk)
	if !ok {
		return nil, engineerr.ErrNotFound
	}
	baseRec, ok := t.Directory.Get(baseRID)
	if !ok {
		return nil, engineerr.ErrNotFound
	}
	baseRow, err := t.Range.Read(baseRec)
	if err != nil {
		return nil, err
	}
	currentHead := baseRow[record.IndirectionIndex]

	// The record currently at the head of the chain — the base on a row's
	// first update, a tail on every update after — is marked modified.
	if currentHead == baseRID {
		if err := baseRec.SchemaEncodingAddress().Page.Overwrite(baseRec.SchemaEncodingAddress().Offset, 1); err != nil {
			return nil, err
		}
	} else if headRec, ok := t.Directory.Get(currentHead); ok {
		if err := headRec.SchemaEncodingAddress().Page.Overwrite(headRec.SchemaEncodingAddress().Offset, 1); err != nil {
			return nil, err
		}
	}

	tailRID := t.nextRID()
	tailRec, err := t.Range.WriteTail(tailRID, currentHead, values)
	if err != nil {
		return nil, err
	}
	t.Directory.Set(tailRID, tailRec)

	if err := baseRec.IndirectionAddress().Page.Overwrite(baseRec.IndirectionAddress().Offset, tailRID); err != nil {
		return nil, err
	}

	if newPK != pk {
		t.Index.Remove(pk)
		t.Index.Add(newPK, baseRID)
	}
	return tailRec, nil
}

// Delete removes pk from the primary index and its base record from the
// page directory. Orphaned tail records are left in place — Merge skips
// chains whose base has vanished — and the caller is responsible for
// clearing pk's current row out of every registered secondary index first,
// since Table has no record of which columns are secondary-indexed.
func (t *Table) Delete(pk int64) bool {
	rid, ok := t.Index.Get(pk)
	if !ok {
		return false
	}
	t.Index.Remove(pk)
	t.Directory.Delete(rid)
	return true
}

// MergeDue reports whether enough tail records have accumulated to justify
// a consolidation pass.
func (t *Table) MergeDue() bool {
	return t.Range.Tail.NumRows() >= t.cfg.MergeThreshold
}

// Merge runs one consolidation pass over the table's page range.
func (t *Table) Merge() (pagerange.MergeResult, error) {
	start := time.Now()
	result, err := t.Range.Merge(t.Directory)
	if err != nil {
		t.log.Debug().Err(err).Msg("table: merge failed")
		return result, err
	}
	t.Metrics.ObserveMerge(time.Since(start), result.BasesUpdated)
	t.log.Debug().Int("tails", result.TailsProcessed).Int("bases", result.BasesUpdated).
		Msg("table: merge complete")
	return result, nil
}

// Sum adds column col across every primary key in [lo, hi], using each
// row's current value.
func (t *Table) Sum(lo, hi int64, col int) int64 {
	var total int64
	for _, pk := range t.Index.RangeKeys(lo, hi) {
		row, ok := t.Read(pk)
		if !ok {
			continue
		}
		total += row[record.NumReservedColumns+col]
	}
	return total
}

// SumVersion adds column col across every primary key in [lo, hi], using
// each row's image k versions back instead of its current value.
func (t *Table) SumVersion(lo, hi int64, col int, k int64) int64 {
	var total int64
	for _, pk := range t.Index.RangeKeys(lo, hi) {
		row, ok := t.ReadRelative(pk, k)
		if !ok {
			continue
		}
		total += row[record.NumReservedColumns+col]
	}
	return total
}
