// Package query implements Query, the stateless operation layer over one
// Table: insert, select, select-version, update, delete, sum, sum-version,
// and increment. Query owns primary-key uniqueness enforcement and
// secondary-index maintenance; Table.Update performs the version-chain
// write itself.
package query

import (
	"github.com/coltab/lstore/engineerr"
	"github.com/coltab/lstore/metrics"
	"github.com/coltab/lstore/record"
	"github.com/coltab/lstore/table"
)

// Query wraps one Table with the operations callers actually issue. Metrics
// is optional — a nil Recorder (the zero value) makes every Observe call a
// no-op.
type Query struct {
	Table   *table.Table
	Metrics *metrics.Recorder
}

// New returns a Query over tbl with no metrics recorder attached.
func New(tbl *table.Table) *Query {
	return &Query{Table: tbl}
}

// NewWithMetrics returns a Query over tbl that records every operation,
// including tbl's own Merge passes, against rec.
func NewWithMetrics(tbl *table.Table, rec *metrics.Recorder) *Query {
	tbl.Metrics = rec
	return &Query{Table: tbl, Metrics: rec}
}

// Insert writes values as a new row, rejecting a primary key already
// present in the table.
func (q *Query) Insert(values []int64) (*record.Record, error) {
	if len(values) != q.Table.NumColumns {
		q.Metrics.Observe("insert", false)
		return nil, engineerr.ErrArityMismatch
	}
	pk := values[q.Table.PrimaryKeyColumn]
	if _, exists := q.Table.Index.Get(pk); exists {
		q.Metrics.Observe("insert", false)
		return nil, engineerr.ErrDuplicateKey
	}
	rec, err := q.Table.Write(values)
	q.Metrics.Observe("insert", err == nil)
	return rec, err
}

// Row is one projected result: reserved cells are always populated; a user
// cell is present only where the caller's projection asked for it.
type Row struct {
	RID            int64
	SchemaEncoding int64
	Indirection    int64
	Columns        []int64
	ColumnPresent  []bool
}

func projectRow(raw []int64, projection []bool) Row {
	userCols := raw[record.NumReservedColumns:]
	row := Row{
		RID:            raw[record.RIDIndex],
		SchemaEncoding: raw[record.SchemaEncodingIndex],
		Indirection:    raw[record.IndirectionIndex],
		Columns:        make([]int64, len(userCols)),
		ColumnPresent:  make([]bool, len(userCols)),
	}
	for i, v := range userCols {
		if i < len(projection) && projection[i] {
			row.Columns[i] = v
			row.ColumnPresent[i] = true
		}
	}
	return row
}

// Select resolves searchKey against searchCol. When searchCol is the
// primary-key column, it is a direct point read. When a secondary index
// exists on searchCol, every RID it maps to is read directly (no
// indirection-following — the index already tracks each row's current
// identity). Otherwise it falls back to a scan of every primary key,
// matching each row's current container cell searchCol+3 against
// searchKey. The bool return
// distinguishes "no such row" (primary-key path only) from a present,
// possibly empty, list.
func (q *Query) Select(searchKey int64, searchCol int, projection []bool) ([]Row, bool) {
	t := q.Table

	if searchCol == t.PrimaryKeyColumn {
		raw, ok := t.Read(searchKey)
		if !ok {
			q.Metrics.Observe("select", false)
			return nil, false
		}
		q.Metrics.Observe("select", true)
		return []Row{projectRow(raw, projection)}, true
	}

	if rids, ok := t.Index.SecondaryLookup(searchCol, searchKey); ok {
		rows := make([]Row, 0, len(rids))
		for _, rid := range rids {
			raw, ok := t.ReadByRID(rid)
			if !ok {
				continue
			}
			rows = append(rows, projectRow(raw, projection))
		}
		q.Metrics.Observe("select", true)
		return rows, true
	}

	var rows []Row
	for _, pk := range t.Index.RangeKeys(minInt64, maxInt64) {
		raw, ok := t.Read(pk)
		if !ok {
			continue
		}
		if raw[record.NumReservedColumns+searchCol] == searchKey {
			rows = append(rows, projectRow(raw, projection))
		}
	}
	q.Metrics.Observe("select", true)
	return rows, true
}

// SelectVersion is Select's read_relative counterpart: it returns pk's
// image k versions back from its current value, projected.
func (q *Query) SelectVersion(pk int64, projection []bool, k int64) (Row, bool) {
	raw, ok := q.Table.ReadRelative(pk, k)
	q.Metrics.Observe("select_version", ok)
	if !ok {
		return Row{}, false
	}
	return projectRow(raw, projection), true
}

// Update applies patch to pk's row: a nil entry leaves that column
// unchanged, a non-nil entry sets it. Updating the primary-key column to a
// value already held by a different live row is rejected. Every secondary
// index registered on the table has its entry moved from pk's old current
// RID to the new tail RID, even for columns the patch did not touch, since
// a row's identity (the RID holding its current value) changes on every
// update.
func (q *Query) Update(pk int64, patch []*int64) (bool, error) {
	t := q.Table
	if len(patch) != t.NumColumns {
		q.Metrics.Observe("update", false)
		return false, engineerr.ErrArityMismatch
	}

	if _, ok := t.Index.Get(pk); !ok {
		q.Metrics.Observe("update", false)
		return false, nil
	}

	newPK := pk
	if p := patch[t.PrimaryKeyColumn]; p != nil && *p != pk {
		if _, exists := t.Index.Get(*p); exists {
			q.Metrics.Observe("update", false)
			return false, nil
		}
		newPK = *p
	}

	oldLatestRID, _ := t.LatestRID(pk)
	current, ok := t.Read(pk)
	if !ok {
		q.Metrics.Observe("update", false)
		return false, nil
	}
	oldValues := make([]int64, t.NumColumns)
	copy(oldValues, current[record.NumReservedColumns:])

	merged := make([]int64, t.NumColumns)
	copy(merged, oldValues)
	for i, v := range patch {
		if v != nil {
			merged[i] = *v
		}
	}

	tailRec, err := t.Update(pk, newPK, merged)
	if err != nil {
		q.Metrics.Observe("update", false)
		return false, err
	}
	newLatestRID := tailRec.RID

	for _, col := range t.Index.SecondaryColumns() {
		t.Index.SecondaryDelete(col, oldLatestRID, oldValues[col])
		t.Index.SecondaryInsert(col, newLatestRID, merged[col])
	}
	q.Metrics.Observe("update", true)
	return true, nil
}

// Delete removes pk, clearing it out of every registered secondary index
// first (per the stronger delete contract: a deleted row leaves no
// secondary-index residue, only orphaned tail records which Merge ignores).
func (q *Query) Delete(pk int64) bool {
	t := q.Table
	row, ok := t.Read(pk)
	if !ok {
		deleted := t.Delete(pk)
		q.Metrics.Observe("delete", deleted)
		return deleted
	}
	latestRID, _ := t.LatestRID(pk)
	for _, col := range t.Index.SecondaryColumns() {
		t.Index.SecondaryDelete(col, latestRID, row[record.NumReservedColumns+col])
	}
	deleted := t.Delete(pk)
	q.Metrics.Observe("delete", deleted)
	return deleted
}

// Sum forwards to Table.Sum.
func (q *Query) Sum(lo, hi int64, col int) int64 {
	total := q.Table.Sum(lo, hi, col)
	q.Metrics.Observe("sum", true)
	return total
}

// SumVersion forwards to Table.SumVersion.
func (q *Query) SumVersion(lo, hi int64, col int, k int64) int64 {
	total := q.Table.SumVersion(lo, hi, col, k)
	q.Metrics.Observe("sum_version", true)
	return total
}

// Increment reads pk's current value at col and updates it to one more,
// leaving every other column untouched. It fails when pk is missing.
func (q *Query) Increment(pk int64, col int) (bool, error) {
	raw, ok := q.Table.Read(pk)
	if !ok {
		q.Metrics.Observe("increment", false)
		return false, nil
	}
	next := raw[record.NumReservedColumns+col] + 1

	patch := make([]*int64, q.Table.NumColumns)
	patch[col] = &next
	updated, err := q.Update(pk, patch)
	q.Metrics.Observe("increment", updated && err == nil)
	return updated, err
}

const (
	minInt64 = -1 << 63
	maxInt64 = 1<<63 - 1
)
