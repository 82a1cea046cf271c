package pagerange

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coltab/lstore/record"
)

// fakeDirectory is a minimal DirectoryReader for tests that don't need a
// full table.
type fakeDirectory struct {
	m map[int64]*record.Record
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{m: make(map[int64]*record.Record)}
}

func (d *fakeDirectory) Get(rid int64) (*record.Record, bool) {
	r, ok := d.m[rid]
	return r, ok
}

func (d *fakeDirectory) set(rid int64, rec *record.Record) {
	d.m[rid] = rec
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	pr := New(2, 0, 0, zerolog.Nop())
	rec, err := pr.Write(0, []int64{10, 20})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	row, err := pr.Read(rec)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if row[record.NumReservedColumns] != 10 || row[record.NumReservedColumns+1] != 20 {
		t.Fatalf("row = %v, want user cols [10 20]", row)
	}
}

func TestMergeConsolidatesLatestTailIntoBase(t *testing.T) {
	pr := New(1, 0, 0, zerolog.Nop())
	dir := newFakeDirectory()

	baseRec, _ := pr.Write(0, []int64{1})
	dir.set(0, baseRec)

	tail1, _ := pr.WriteTail(1, 0, []int64{2})
	dir.set(1, tail1)
	tail2, _ := pr.WriteTail(2, 1, []int64{3})
	dir.set(2, tail2)

	result, err := pr.Merge(dir)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.TailsProcessed != 2 || result.BasesUpdated != 1 {
		t.Fatalf("result = %+v, want TailsProcessed=2 BasesUpdated=1", result)
	}

	row, err := pr.Read(baseRec)
	if err != nil {
		t.Fatalf("Read base after merge: %v", err)
	}
	if row[record.NumReservedColumns] != 3 {
		t.Fatalf("base user column after merge = %d, want 3 (latest tail value)", row[record.NumReservedColumns])
	}
}

func TestMergeIsIncrementalAcrossCalls(t *testing.T) {
	pr := New(1, 0, 0, zerolog.Nop())
	dir := newFakeDirectory()

	baseRec, _ := pr.Write(0, []int64{1})
	dir.set(0, baseRec)
	tail1, _ := pr.WriteTail(1, 0, []int64{2})
	dir.set(1, tail1)

	first, err := pr.Merge(dir)
	if err != nil || first.TailsProcessed != 1 {
		t.Fatalf("first Merge = %+v, %v; want TailsProcessed=1", first, err)
	}

	second, err := pr.Merge(dir)
	if err != nil || second.TailsProcessed != 0 {
		t.Fatalf("second Merge (no new tails) = %+v, %v; want TailsProcessed=0", second, err)
	}

	tail2, _ := pr.WriteTail(2, 1, []int64{5})
	dir.set(2, tail2)
	third, err := pr.Merge(dir)
	if err != nil || third.TailsProcessed != 1 || third.BasesUpdated != 1 {
		t.Fatalf("third Merge = %+v, %v; want TailsProcessed=1 BasesUpdated=1", third, err)
	}
}

func TestMergeSkipsOrphanedChainsWhoseBaseWasDeleted(t *testing.T) {
	pr := New(1, 0, 0, zerolog.Nop())
	dir := newFakeDirectory()

	baseRec, _ := pr.Write(0, []int64{1})
	dir.set(0, baseRec)
	tail1, _ := pr.WriteTail(1, 0, []int64{2})
	dir.set(1, tail1)

	delete(dir.m, 0) // simulate Table.Delete removing the base

	result, err := pr.Merge(dir)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.BasesUpdated != 0 {
		t.Fatalf("BasesUpdated = %d, want 0 (orphaned chain)", result.BasesUpdated)
	}
}

func TestNewWithLockTimeoutStillWorksUncontended(t *testing.T) {
	pr := New(1, 0, 10*time.Millisecond, zerolog.Nop())
	if _, err := pr.Write(0, []int64{1}); err != nil {
		t.Fatalf("Write with a configured lock timeout: %v", err)
	}
}
