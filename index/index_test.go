package index

import "testing"

func TestPrimaryAddGetRemove(t *testing.T) {
	idx := New()
	idx.Add(1, 100)
	if rid, ok := idx.Get(1); !ok || rid != 100 {
		t.Fatalf("Get(1) = %d, %v; want 100, true", rid, ok)
	}
	idx.Add(10, 1010101)
	if rid, ok := idx.Get(10); !ok || rid != 1010101 {
		t.Fatalf("Get(10) = %d, %v; want 1010101, true", rid, ok)
	}
	idx.Remove(1)
	if _, ok := idx.Get(1); ok {
		t.Fatalf("Get(1) after Remove: expected not found")
	}
}

func TestRangeKeysAscending(t *testing.T) {
	idx := New()
	for _, k := range []int64{5, 1, 3, 2, 4} {
		idx.Add(k, k*10)
	}
	got := idx.RangeKeys(2, 4)
	want := []int64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("RangeKeys(2,4) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RangeKeys(2,4) = %v, want %v", got, want)
		}
	}
}

// TestCreateSecondaryBucketing checks that inserting [1,10,20], [2,10,30],
// [3,20,40] with RIDs 0,1,2 respectively yields a bucket [0,1] for value 10
// on column 1 and [2] for value 20.
func TestCreateSecondaryBucketing(t *testing.T) {
	idx := New()
	idx.Add(1, 0)
	idx.Add(2, 1)
	idx.Add(3, 2)

	values := map[int64]int64{0: 10, 1: 10, 2: 20}
	latest := func(rid int64, col int) (int64, int64, bool) {
		v, ok := values[rid]
		return rid, v, ok
	}

	idx.CreateSecondary(1, latest)

	rids, ok := idx.SecondaryLookup(1, 10)
	if !ok || len(rids) != 2 || rids[0] != 0 || rids[1] != 1 {
		t.Fatalf("SecondaryLookup(1, 10) = %v, %v; want [0 1], true", rids, ok)
	}
	rids, ok = idx.SecondaryLookup(1, 20)
	if !ok || len(rids) != 1 || rids[0] != 2 {
		t.Fatalf("SecondaryLookup(1, 20) = %v, %v; want [2], true", rids, ok)
	}

	idx.DropSecondary(1)
	if idx.HasSecondary(1) {
		t.Fatalf("HasSecondary(1) after DropSecondary: expected false")
	}
}

func TestSecondaryInsertUpdateDelete(t *testing.T) {
	idx := New()
	idx.Add(1, 0)
	idx.CreateSecondary(0, func(rid int64, col int) (int64, int64, bool) { return rid, 0, false })

	idx.SecondaryInsert(0, 5, 100)
	idx.SecondaryInsert(0, 10, 100)
	rids, _ := idx.SecondaryLookup(0, 100)
	if len(rids) != 2 || rids[0] != 5 || rids[1] != 10 {
		t.Fatalf("after two inserts: got %v, want [5 10]", rids)
	}

	idx.SecondaryUpdate(0, 10, 100, 200)
	rids, _ = idx.SecondaryLookup(0, 100)
	if len(rids) != 1 || rids[0] != 5 {
		t.Fatalf("after update, bucket 100: got %v, want [5]", rids)
	}
	rids, _ = idx.SecondaryLookup(0, 200)
	if len(rids) != 1 || rids[0] != 10 {
		t.Fatalf("after update, bucket 200: got %v, want [10]", rids)
	}

	idx.SecondaryDelete(0, 5, 100)
	rids, _ = idx.SecondaryLookup(0, 100)
	if len(rids) != 0 {
		t.Fatalf("after delete: got %v, want []", rids)
	}
}
