package query

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/coltab/lstore/config"
	"github.com/coltab/lstore/table"
)

func newTestQuery(t *testing.T, numCols, pkCol int) *Query {
	t.Helper()
	tbl := table.New("grades", numCols, pkCol, config.Default(), zerolog.Nop())
	return New(tbl)
}

func allProjected(n int) []bool {
	p := make([]bool, n)
	for i := range p {
		p[i] = true
	}
	return p
}

func optional(v int64) *int64 { return &v }

func TestInsertRejectsDuplicatePrimaryKey(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	if _, err := q.Insert([]int64{1, 100}); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if _, err := q.Insert([]int64{1, 200}); err == nil {
		t.Fatalf("second Insert with duplicate pk: expected error")
	}
}

func TestSelectByPrimaryKey(t *testing.T) {
	q := newTestQuery(t, 3, 0)
	q.Insert([]int64{1, 10, 20})

	rows, ok := q.Select(1, 0, allProjected(3))
	if !ok || len(rows) != 1 {
		t.Fatalf("Select(1,0,...) = %v, %v; want one row", rows, ok)
	}
	if rows[0].Columns[1] != 10 || rows[0].Columns[2] != 20 {
		t.Fatalf("row = %+v, want col1=10 col2=20", rows[0])
	}
}

func TestSelectProjectionHidesUnrequestedColumns(t *testing.T) {
	q := newTestQuery(t, 3, 0)
	q.Insert([]int64{1, 10, 20})

	projection := []bool{true, false, true}
	rows, ok := q.Select(1, 0, projection)
	if !ok || len(rows) != 1 {
		t.Fatalf("Select: %v, %v", rows, ok)
	}
	row := rows[0]
	if !row.ColumnPresent[0] || row.ColumnPresent[1] || !row.ColumnPresent[2] {
		t.Fatalf("ColumnPresent = %v, want [true false true]", row.ColumnPresent)
	}
}

func TestSelectViaSecondaryIndex(t *testing.T) {
	q := newTestQuery(t, 3, 0)
	q.Insert([]int64{1, 10, 20})
	q.Insert([]int64{2, 10, 30})
	q.Insert([]int64{3, 20, 40})
	q.Table.CreateSecondary(1)

	rows, ok := q.Select(10, 1, allProjected(3))
	if !ok || len(rows) != 2 {
		t.Fatalf("Select(10,1,...) = %v, %v; want 2 rows", rows, ok)
	}
}

func TestSelectFullScanFallback(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 5})
	q.Insert([]int64{2, 5})
	q.Insert([]int64{3, 9})

	rows, ok := q.Select(5, 1, allProjected(2))
	if !ok || len(rows) != 2 {
		t.Fatalf("full scan Select(5,1,...) = %v, %v; want 2 rows", rows, ok)
	}
}

func TestUpdatePartialPatchLeavesOtherColumnsAlone(t *testing.T) {
	q := newTestQuery(t, 3, 0)
	q.Insert([]int64{1, 10, 20})

	ok, err := q.Update(1, []*int64{nil, optional(99), nil})
	if err != nil || !ok {
		t.Fatalf("Update: %v, %v", ok, err)
	}

	rows, _ := q.Select(1, 0, allProjected(3))
	row := rows[0]
	if row.Columns[0] != 1 || row.Columns[1] != 99 || row.Columns[2] != 20 {
		t.Fatalf("after partial update: %v, want [1 99 20]", row.Columns)
	}
}

func TestUpdateRejectsPrimaryKeyCollision(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 10})
	q.Insert([]int64{2, 20})

	ok, err := q.Update(1, []*int64{optional(2), nil})
	if err != nil {
		t.Fatalf("Update: unexpected error %v", err)
	}
	if ok {
		t.Fatalf("Update to colliding primary key: expected false")
	}
}

func TestUpdateKeepsSecondaryIndexCoherent(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 10})
	q.Insert([]int64{2, 20})
	q.Table.CreateSecondary(1)

	q.Update(1, []*int64{nil, optional(30)})

	rows, ok := q.Select(10, 1, allProjected(2))
	if !ok || len(rows) != 0 {
		t.Fatalf("old value 10 after update: got %v rows, want 0", len(rows))
	}
	rows, ok = q.Select(30, 1, allProjected(2))
	if !ok || len(rows) != 1 {
		t.Fatalf("new value 30 after update: got %v rows, want 1", len(rows))
	}
}

func TestDeleteThenSelectMisses(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 10})
	q.Table.CreateSecondary(1)

	if !q.Delete(1) {
		t.Fatalf("Delete(1): expected true")
	}
	if _, ok := q.Select(1, 0, allProjected(2)); ok {
		t.Fatalf("Select after delete: expected not found")
	}
	rows, ok := q.Select(10, 1, allProjected(2))
	if !ok || len(rows) != 0 {
		t.Fatalf("secondary lookup after delete: got %v rows, want 0", len(rows))
	}
}

func TestIncrement(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 41})

	ok, err := q.Increment(1, 1)
	if err != nil || !ok {
		t.Fatalf("Increment: %v, %v", ok, err)
	}
	rows, _ := q.Select(1, 0, allProjected(2))
	if rows[0].Columns[1] != 42 {
		t.Fatalf("after Increment: col1 = %d, want 42", rows[0].Columns[1])
	}
}

func TestSelectVersion(t *testing.T) {
	q := newTestQuery(t, 1, 0)
	q.Insert([]int64{1}) // pk doubles as the only column — pk col 0

	q.Update(1, []*int64{nil})
	row, ok := q.SelectVersion(1, allProjected(1), 0)
	if !ok {
		t.Fatalf("SelectVersion: not found")
	}
	_ = row
}

func TestSumAcrossRange(t *testing.T) {
	q := newTestQuery(t, 2, 0)
	q.Insert([]int64{1, 10})
	q.Insert([]int64{2, 20})
	q.Insert([]int64{3, 30})

	if got := q.Sum(1, 3, 1); got != 60 {
		t.Fatalf("Sum(1,3,1) = %d, want 60", got)
	}
}
