// Package pagerange implements PageRange, the pairing of one BaseContainer
// and one TailContainer that backs a table's single logical partition, and
// the merge (consolidation) pass that collapses tail chains back into
// refreshed base images.
package pagerange

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/coltab/lstore/container"
	"github.com/coltab/lstore/record"
)

// DirectoryReader is the read-only slice of the page directory Merge needs:
// resolve a RID to the Record that locates its cells. table.PageDirectory
// satisfies this without pagerange importing table — table owns the
// PageRange, not the other way around.
type DirectoryReader interface {
	Get(rid int64) (*record.Record, bool)
}

// PageRange owns exactly one BaseContainer and one TailContainer for one
// table's single logical partition.
type PageRange struct {
	Base *container.BaseContainer
	Tail *container.TailContainer

	// mergedTailCount is how many of the tail container's RIDs (in
	// insertion order) the last Merge call already consolidated.
	mergedTailCount int

	log zerolog.Logger
}

// New allocates an initialized PageRange for numCols user columns. capacity
// of 0 leaves both containers' pages unbounded; lockTimeout of 0 means every
// page's lock blocks indefinitely, otherwise it bounds how long a page
// write/read waits on contention before failing with
// engineerr.ErrLockTimeout.
func New(numCols int, capacity int, lockTimeout time.Duration, log zerolog.Logger) *PageRange {
	base := container.NewBaseContainer(numCols)
	base.Initialize(capacity, lockTimeout)
	tail := container.NewTailContainer(numCols)
	tail.Initialize(capacity, lockTimeout)
	return &PageRange{Base: base, Tail: tail, log: log}
}

// Write inserts a new base row. Delegates directly to
// BaseContainer.InsertRecord — the Table layer owns RID allocation and
// primary-index bookkeeping.
func (pr *PageRange) Write(rid int64, values []int64) (*record.Record, error) {
	rec, err := pr.Base.InsertRecord(rid, values)
	if err != nil {
		return nil, err
	}
	pr.log.Debug().Int64("rid", rid).Msg("pagerange: base record written")
	return rec, nil
}

// Read returns the full row image (3 reserved + N user cells) a Record
// addresses, regardless of whether it came from the base or tail container.
func (pr *PageRange) Read(rec *record.Record) ([]int64, error) {
	if rec.Kind == record.Base {
		return pr.Base.ReadRecord(rec)
	}
	return pr.Tail.ReadRecord(rec)
}

// WriteTail inserts a new tail image. indirectionRID is the previous head
// of the row's version chain.
func (pr *PageRange) WriteTail(rid, indirectionRID int64, values []int64) (*record.Record, error) {
	rec, err := pr.Tail.InsertRecord(rid, indirectionRID, values)
	if err != nil {
		return nil, err
	}
	pr.log.Debug().Int64("rid", rid).Int64("indirection", indirectionRID).
		Msg("pagerange: tail record written")
	return rec, nil
}

// MergeResult reports what one Merge pass accomplished.
type MergeResult struct {
	TailsProcessed int
	BasesUpdated   int
}

// Merge consolidates every tail RID written since the last Merge call into
// refreshed base images, overwriting the base container's user-column
// cells in place so existing Records and addresses remain valid rather
// than relocating rows to new base pages.
//
// Tails are walked newest-first and only the first tail seen per base is
// consolidated, so each of the B distinct bases touched is overwritten
// once and the page directory is never scanned. Each of the T new tails is
// traced to its base by walking its indirection chain from that tail back
// to the base, with no memo of earlier traces, so tracing cost grows with
// chain length and the pass is not O(T + B) for long chains.
func (pr *PageRange) Merge(dir DirectoryReader) (MergeResult, error) {
	allTailRIDs := pr.Tail.RIDs()
	newRIDs := allTailRIDs[pr.mergedTailCount:]

	visited := make(map[int64]bool, len(newRIDs))
	var result MergeResult

	for i := len(newRIDs) - 1; i >= 0; i-- {
		tailRID := newRIDs[i]
		result.TailsProcessed++

		baseRID, latestTailRec, ok := pr.traceToBase(dir, tailRID)
		if !ok {
			continue // orphaned tail: its base was deleted, nothing to consolidate
		}
		if visited[baseRID] {
			continue // a newer tail for this base already won
		}
		visited[baseRID] = true

		baseRec, ok := dir.Get(baseRID)
		if !ok {
			continue
		}

		latestValues, err := pr.Tail.ReadRecord(latestTailRec)
		if err != nil {
			return result, err
		}
		userValues := latestValues[container.NumReservedColumns:]

		baseColumns := baseRec.Columns()
		for i, v := range userValues {
			if err := baseColumns[i].Page.Overwrite(baseColumns[i].Offset, v); err != nil {
				return result, err
			}
		}
		result.BasesUpdated++
	}

	pr.mergedTailCount = len(allTailRIDs)
	pr.log.Debug().Int("tails", result.TailsProcessed).Int("bases", result.BasesUpdated).
		Msg("pagerange: merge complete")
	return result, nil
}

// traceToBase follows a tail RID's indirection chain back to its base
// record. It returns the base RID, the Record for tailRID itself (the
// candidate "latest tail" payload for that base), and whether the chain
// resolved — it fails to resolve when an intermediate RID has been
// removed from the directory (an orphaned chain).
func (pr *PageRange) traceToBase(dir DirectoryReader, tailRID int64) (int64, *record.Record, bool) {
	startRec, ok := dir.Get(tailRID)
	if !ok {
		return 0, nil, false
	}

	cur := tailRID
	for {
		rec, ok := dir.Get(cur)
		if !ok {
			return 0, nil, false
		}
		if rec.Kind == record.Base {
			return cur, startRec, true
		}
		row, err := pr.Tail.ReadRecord(rec)
		if err != nil {
			return 0, nil, false
		}
		cur = row[container.NumReservedColumns-1] // indirection cell
	}
}
