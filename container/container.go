// Package container implements BaseContainer and TailContainer, the
// per-column-set bundles of pages that hold base images and tail (version)
// images respectively.
package container

import (
	"time"

	"github.com/coltab/lstore/engineerr"
	"github.com/coltab/lstore/page"
	"github.com/coltab/lstore/record"
)

// Column indices of the three reserved columns within any container.
const (
	ridColumn            = 0
	schemaEncodingColumn = 1
	indirectionColumn    = 2
)

// base holds the page fabric shared by BaseContainer and TailContainer:
// three reserved pages followed by numCols user-column pages.
type base struct {
	pages   []*page.Page
	numCols int
}

func newBase(numCols int) base {
	return base{numCols: numCols}
}

// Initialize allocates the 3+numCols pages. Safe to call once per container.
// lockTimeout is passed through to every page; 0 means block indefinitely.
func (b *base) initialize(capacity int, lockTimeout time.Duration) {
	b.pages = make([]*page.Page, 0, NumReservedColumns+b.numCols)
	for i := 0; i < NumReservedColumns+b.numCols; i++ {
		if capacity > 0 {
			b.pages = append(b.pages, page.NewWithCapacity(capacity, lockTimeout))
		} else {
			b.pages = append(b.pages, page.New(lockTimeout))
		}
	}
}

// NumReservedColumns mirrors record.NumReservedColumns for readability at
// the container layer.
const NumReservedColumns = record.NumReservedColumns

func (b *base) RIDPage() *page.Page            { return b.pages[ridColumn] }
func (b *base) SchemaEncodingPage() *page.Page { return b.pages[schemaEncodingColumn] }
func (b *base) IndirectionPage() *page.Page    { return b.pages[indirectionColumn] }
func (b *base) ColumnPage(i int) *page.Page    { return b.pages[NumReservedColumns+i] }
func (b *base) NumColumns() int                { return b.numCols }

// readRecord reads every cell a Record addresses, in container column order.
func readRecord(rec *record.Record) ([]int64, error) {
	values := make([]int64, 0, len(rec.Addresses))
	for _, addr := range rec.Addresses {
		v, ok := addr.Page.Read(addr.Offset)
		if !ok {
			return nil, engineerr.ErrOutOfRange
		}
		values = append(values, v)
	}
	return values, nil
}

// BaseContainer holds the base-record layout: for each inserted row, the
// schema-encoding cell starts at 0 and the indirection cell self-references
// the row's own RID (no updates yet).
type BaseContainer struct {
	base
}

// NewBaseContainer returns an uninitialized container for numCols user columns.
func NewBaseContainer(numCols int) *BaseContainer {
	return &BaseContainer{base: newBase(numCols)}
}

// Initialize allocates the container's pages. capacity of 0 means unbounded;
// lockTimeout of 0 means every page's lock blocks indefinitely.
func (c *BaseContainer) Initialize(capacity int, lockTimeout time.Duration) {
	c.initialize(capacity, lockTimeout)
}

// InsertRecord appends one row: rid self-references as the indirection
// value, schema encoding starts at 0. Returns engineerr.ErrArityMismatch if
// len(values) != NumColumns().
func (c *BaseContainer) InsertRecord(rid int64, values []int64) (*record.Record, error) {
	if len(values) != c.numCols {
		return nil, engineerr.ErrArityMismatch
	}

	addresses := make([]record.Address, 0, NumReservedColumns+c.numCols)

	ridOff, err := c.RIDPage().Write(rid)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.RIDPage(), Offset: ridOff})

	seOff, err := c.SchemaEncodingPage().Write(0)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.SchemaEncodingPage(), Offset: seOff})

	indOff, err := c.IndirectionPage().Write(rid)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.IndirectionPage(), Offset: indOff})

	for i, v := range values {
		off, err := c.ColumnPage(i).Write(v)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, record.Address{Page: c.ColumnPage(i), Offset: off})
	}

	return &record.Record{RID: rid, Kind: record.Base, Addresses: addresses}, nil
}

// ReadRecord reads a previously inserted row back, in 3-reserved + N-user order.
func (c *BaseContainer) ReadRecord(rec *record.Record) ([]int64, error) {
	return readRecord(rec)
}

// TailContainer holds the tail-record layout: the indirection cell points
// at the previous head of the version chain instead of self-referencing.
type TailContainer struct {
	base
}

// NewTailContainer returns an uninitialized container for numCols user columns.
func NewTailContainer(numCols int) *TailContainer {
	return &TailContainer{base: newBase(numCols)}
}

// Initialize allocates the container's pages. capacity of 0 means unbounded;
// lockTimeout of 0 means every page's lock blocks indefinitely.
func (c *TailContainer) Initialize(capacity int, lockTimeout time.Duration) {
	c.initialize(capacity, lockTimeout)
}

// InsertRecord appends one tail image: indirectionRID is the previous head
// of this row's version chain (another tail RID, or the base RID).
// Returns engineerr.ErrArityMismatch if len(values) != NumColumns().
func (c *TailContainer) InsertRecord(rid, indirectionRID int64, values []int64) (*record.Record, error) {
	if len(values) != c.numCols {
		return nil, engineerr.ErrArityMismatch
	}

	addresses := make([]record.Address, 0, NumReservedColumns+c.numCols)

	ridOff, err := c.RIDPage().Write(rid)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.RIDPage(), Offset: ridOff})

	seOff, err := c.SchemaEncodingPage().Write(0)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.SchemaEncodingPage(), Offset: seOff})

	indOff, err := c.IndirectionPage().Write(indirectionRID)
	if err != nil {
		return nil, err
	}
	addresses = append(addresses, record.Address{Page: c.IndirectionPage(), Offset: indOff})

	for i, v := range values {
		off, err := c.ColumnPage(i).Write(v)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, record.Address{Page: c.ColumnPage(i), Offset: off})
	}

	return &record.Record{RID: rid, Kind: record.Tail, Addresses: addresses}, nil
}

// ReadRecord reads a previously inserted tail row back, in
// 3-reserved + N-user order.
func (c *TailContainer) ReadRecord(rec *record.Record) ([]int64, error) {
	return readRecord(rec)
}

// NumRows returns how many tail records have been written so far.
func (c *TailContainer) NumRows() int {
	return c.RIDPage().NumRecords()
}

// RIDs returns every RID written to the container's RID page, in insertion
// order. Merge uses this to discover which tail records have appeared
// since the last consolidation pass.
func (c *TailContainer) RIDs() []int64 {
	n := c.RIDPage().NumRecords()
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v, ok := c.RIDPage().Read(i)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
