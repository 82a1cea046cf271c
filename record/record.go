// Package record implements Record, the lightweight descriptor that locates
// every cell of one logical row across a container's pages.
package record

import "github.com/coltab/lstore/page"

// Type distinguishes a base-container record from a tail-container one.
// The two containers share the same reserved-column layout, but a Record
// needs to know which one it was assembled from so PageRange.Read can
// route it to the right container and Merge can tell where a version
// chain reaches its base.
type Type int

const (
	// Base marks a record assembled by BaseContainer.InsertRecord.
	Base Type = iota
	// Tail marks a record assembled by TailContainer.InsertRecord.
	Tail
)

// NumReservedColumns is the number of system columns (RID, schema
// encoding, indirection) that precede the user columns in every
// container, base or tail.
const NumReservedColumns = 3

// Reserved-column offsets within a row value slice returned by
// container.ReadRecord / pagerange.Read, before the N user columns.
const (
	RIDIndex            = 0
	SchemaEncodingIndex = 1
	IndirectionIndex    = 2
)

// Address is one (page, offset) location of a single cell.
type Address struct {
	Page   *page.Page
	Offset int
}

// Record is a RID plus the ordered list of cell addresses — 3 reserved
// followed by N user columns — that describe where this row's data lives.
// A Record is never mutated after creation; the cells it points at may be
// overwritten (indirection, schema encoding), but new user-column values
// are represented by inserting a new tail Record, never by rewriting this
// one's addresses.
type Record struct {
	RID       int64
	Kind      Type
	Addresses []Address
}

// RIDAddress returns the address of the reserved RID cell.
func (r *Record) RIDAddress() Address { return r.Addresses[0] }

// SchemaEncodingAddress returns the address of the reserved schema-encoding cell.
func (r *Record) SchemaEncodingAddress() Address { return r.Addresses[1] }

// IndirectionAddress returns the address of the reserved indirection cell.
func (r *Record) IndirectionAddress() Address { return r.Addresses[2] }

// Columns returns the addresses of the user columns only, in column order.
func (r *Record) Columns() []Address {
	return r.Addresses[NumReservedColumns:]
}
