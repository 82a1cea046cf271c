// Package index implements the primary and secondary indexes: an ordered
// primary-key → RID map, and zero or more ordered value → RIDs maps keyed
// by user-column index.
//
// Both index kinds are backed by github.com/google/btree so that primary
// lookups and secondary buckets stay ordered: the primary map supports
// range scans and each secondary bucket stays sorted ascending.
package index

import (
	"sort"
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

type primaryEntry struct {
	key int64
	rid int64
}

func primaryLess(a, b primaryEntry) bool { return a.key < b.key }

type secondaryEntry struct {
	value int64
	rids  []int64
}

func secondaryLess(a, b secondaryEntry) bool { return a.value < b.value }

// Index holds one table's primary index plus its registered secondary
// indexes. The zero value is not usable; construct with New.
type Index struct {
	mu      sync.RWMutex
	primary *btree.BTreeG[primaryEntry]

	secondary map[int]*btree.BTreeG[secondaryEntry]
}

// New returns an empty Index with no secondary indexes registered.
func New() *Index {
	return &Index{
		primary:   btree.NewG(btreeDegree, primaryLess),
		secondary: make(map[int]*btree.BTreeG[secondaryEntry]),
	}
}

// Add maps primaryKey to rid, overwriting any previous mapping.
func (idx *Index) Add(primaryKey, rid int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.primary.ReplaceOrInsert(primaryEntry{key: primaryKey, rid: rid})
}

// Get returns the RID mapped to primaryKey, if any.
func (idx *Index) Get(primaryKey int64) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.primary.Get(primaryEntry{key: primaryKey})
	return e.rid, ok
}

// Remove drops primaryKey's mapping.
func (idx *Index) Remove(primaryKey int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.primary.Delete(primaryEntry{key: primaryKey})
}

// RangeKeys returns every primary key in [lo, hi], ascending.
func (idx *Index) RangeKeys(lo, hi int64) []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []int64
	collect := func(e primaryEntry) bool {
		out = append(out, e.key)
		return true
	}
	if hi == 1<<63-1 {
		// hi+1 would overflow; every key >= lo is in range.
		idx.primary.AscendGreaterOrEqual(primaryEntry{key: lo}, collect)
	} else {
		idx.primary.AscendRange(primaryEntry{key: lo}, primaryEntry{key: hi + 1}, collect)
	}
	return out
}

// LatestValueFunc resolves the RID currently holding a row's latest value
// for one user column, and that value itself. ok is false when the row no
// longer exists (deleted or never written).
type LatestValueFunc func(baseRID int64, col int) (latestRID, value int64, ok bool)

// CreateSecondary builds a secondary index on col from scratch. It resolves
// each live row's *current* (post-update) value rather than its stored
// base-container cell — latest resolves indirection the same way
// Table.Read does.
func (idx *Index) CreateSecondary(col int, latest LatestValueFunc) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bt := btree.NewG(btreeDegree, secondaryLess)
	idx.primary.Ascend(func(e primaryEntry) bool {
		latestRID, value, ok := latest(e.rid, col)
		if !ok {
			return true
		}
		insertSorted(bt, value, latestRID)
		return true
	})
	idx.secondary[col] = bt
}

// DropSecondary removes the secondary index on col, if any.
func (idx *Index) DropSecondary(col int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.secondary, col)
}

// HasSecondary reports whether a secondary index on col exists.
func (idx *Index) HasSecondary(col int) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.secondary[col]
	return ok
}

// SecondaryLookup returns the RIDs mapped to value in col's secondary
// index, sorted ascending. The second return is false if no secondary
// index exists on col at all (as opposed to the index existing but value
// being absent, which returns a non-nil ok with an empty slice).
func (idx *Index) SecondaryLookup(col int, value int64) ([]int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bt, ok := idx.secondary[col]
	if !ok {
		return nil, false
	}
	e, found := bt.Get(secondaryEntry{value: value})
	if !found {
		return []int64{}, true
	}
	out := make([]int64, len(e.rids))
	copy(out, e.rids)
	return out, true
}

// SecondaryInsert records that rid now holds value in col's secondary
// index, if that index is registered.
func (idx *Index) SecondaryInsert(col int, rid, value int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	bt, ok := idx.secondary[col]
	if !ok {
		return
	}
	insertSorted(bt, value, rid)
}

// SecondaryDelete removes rid from value's bucket in col's secondary
// index, if that index is registered.
func (idx *Index) SecondaryDelete(col int, rid, value int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	bt, ok := idx.secondary[col]
	if !ok {
		return
	}
	e, found := bt.Get(secondaryEntry{value: value})
	if !found {
		return
	}
	e.rids = removeRID(e.rids, rid)
	bt.ReplaceOrInsert(e)
}

// SecondaryUpdate moves rid from oldValue's bucket to newValue's bucket in
// col's secondary index, if that index is registered. Used when a row's
// column value changes but the record identity holding it does not.
func (idx *Index) SecondaryUpdate(col int, rid, oldValue, newValue int64) {
	if oldValue == newValue {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	bt, ok := idx.secondary[col]
	if !ok {
		return
	}
	if e, found := bt.Get(secondaryEntry{value: oldValue}); found {
		e.rids = removeRID(e.rids, rid)
		bt.ReplaceOrInsert(e)
	}
	insertSorted(bt, newValue, rid)
}

// SecondaryColumns returns the column indices that currently have a
// secondary index registered.
func (idx *Index) SecondaryColumns() []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	cols := make([]int, 0, len(idx.secondary))
	for c := range idx.secondary {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

func insertSorted(bt *btree.BTreeG[secondaryEntry], value, rid int64) {
	e, found := bt.Get(secondaryEntry{value: value})
	if !found {
		bt.ReplaceOrInsert(secondaryEntry{value: value, rids: []int64{rid}})
		return
	}
	i := sort.Search(len(e.rids), func(i int) bool { return e.rids[i] >= rid })
	if i < len(e.rids) && e.rids[i] == rid {
		return // already present
	}
	e.rids = append(e.rids, 0)
	copy(e.rids[i+1:], e.rids[i:])
	e.rids[i] = rid
	bt.ReplaceOrInsert(e)
}

func removeRID(rids []int64, rid int64) []int64 {
	for i, r := range rids {
		if r == rid {
			return append(rids[:i], rids[i+1:]...)
		}
	}
	return rids
}
