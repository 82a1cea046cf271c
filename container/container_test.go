package container

import (
	"testing"
	"time"
)

func TestBaseContainerInsertSelfReferencesIndirection(t *testing.T) {
	c := NewBaseContainer(2)
	c.Initialize(0, 0)

	rec, err := c.InsertRecord(7, []int64{10, 20})
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	row, err := c.ReadRecord(rec)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if row[ridColumn] != 7 || row[indirectionColumn] != 7 {
		t.Fatalf("row = %v, want rid=7 indirection=7 (self-reference)", row)
	}
	if row[schemaEncodingColumn] != 0 {
		t.Fatalf("schema encoding = %d, want 0 on insert", row[schemaEncodingColumn])
	}
	if row[NumReservedColumns] != 10 || row[NumReservedColumns+1] != 20 {
		t.Fatalf("user columns = %v, want [10 20]", row[NumReservedColumns:])
	}
}

func TestBaseContainerArityMismatch(t *testing.T) {
	c := NewBaseContainer(2)
	c.Initialize(0, 0)
	if _, err := c.InsertRecord(1, []int64{1}); err == nil {
		t.Fatalf("InsertRecord with wrong arity: expected error")
	}
}

func TestTailContainerInsertChainsIndirection(t *testing.T) {
	c := NewTailContainer(1)
	c.Initialize(0, 0)

	rec, err := c.InsertRecord(5, 3, []int64{99})
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	row, err := c.ReadRecord(rec)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if row[ridColumn] != 5 || row[indirectionColumn] != 3 {
		t.Fatalf("row = %v, want rid=5 indirection=3", row)
	}
}

func TestTailContainerRIDsInInsertionOrder(t *testing.T) {
	c := NewTailContainer(1)
	c.Initialize(0, 0)
	c.InsertRecord(1, 0, []int64{1})
	c.InsertRecord(2, 1, []int64{2})
	c.InsertRecord(3, 2, []int64{3})

	got := c.RIDs()
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("RIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RIDs() = %v, want %v", got, want)
		}
	}
	if c.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", c.NumRows())
	}
}

func TestInitializeWithLockTimeoutStillWorksUncontended(t *testing.T) {
	c := NewBaseContainer(1)
	c.Initialize(0, 10*time.Millisecond)
	if _, err := c.InsertRecord(1, []int64{42}); err != nil {
		t.Fatalf("InsertRecord with a configured lock timeout: %v", err)
	}
}
