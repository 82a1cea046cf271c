// Package chandle is the cgo boundary for embedding the engine in a host
// scripting environment, deliberately kept out of the core engine package.
// Every open table gets an opaque int64 handle, and every operation is
// re-expressed as a flat C-callable function taking that handle plus C
// values.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/coltab/lstore/config"
	"github.com/coltab/lstore/metrics"
	"github.com/coltab/lstore/query"
	"github.com/coltab/lstore/table"
)

var (
	mu         sync.Mutex
	handles          = make(map[int64]*query.Query)
	nextHandle int64 = 1
	lastError        = make(map[int64]string)
)

func setError(h int64, err error) {
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		lastError[h] = err.Error()
	} else {
		delete(lastError, h)
	}
}

// Lstore_create_table allocates an in-memory table with numColumns user
// columns and primaryKeyColumn as the unique key, and returns a handle > 0.
// Every table gets its own prometheus registry — a host embedding the engine
// may open and close many tables sharing a name, which would otherwise
// collide in the global default registry.
//
//export Lstore_create_table
func Lstore_create_table(name *C.char, numColumns C.int, primaryKeyColumn C.int) C.longlong {
	goName := C.GoString(name)
	tbl := table.New(goName, int(numColumns), int(primaryKeyColumn), config.Default(), zerolog.Nop())
	rec := metrics.NewForRegistry(goName, prometheus.NewRegistry())
	q := query.NewWithMetrics(tbl, rec)

	mu.Lock()
	h := nextHandle
	nextHandle++
	handles[h] = q
	mu.Unlock()
	return C.longlong(h)
}

// Lstore_close releases a handle. Returns 0 on success, -1 if the handle
// was unknown.
//
//export Lstore_close
func Lstore_close(handle C.longlong) C.int {
	h := int64(handle)
	mu.Lock()
	_, ok := handles[h]
	delete(handles, h)
	delete(lastError, h)
	mu.Unlock()
	if !ok {
		return -1
	}
	return 0
}

func lookup(handle C.longlong) (*query.Query, int64, bool) {
	h := int64(handle)
	mu.Lock()
	q, ok := handles[h]
	mu.Unlock()
	return q, h, ok
}

// Lstore_insert writes one row, given as numColumns consecutive int64
// values. Returns the new row's RID, or -1 on failure (duplicate primary
// key, arity mismatch, or unknown handle).
//
//export Lstore_insert
func Lstore_insert(handle C.longlong, values *C.longlong, numColumns C.int) C.longlong {
	q, h, ok := lookup(handle)
	if !ok {
		return -1
	}
	goValues := cLongLongSlice(values, int(numColumns))
	rec, err := q.Insert(goValues)
	setError(h, err)
	if err != nil {
		return -1
	}
	return C.longlong(rec.RID)
}

// Lstore_select_pk reads pk's current row and writes its user columns,
// fully projected, into out (which must hold numColumns int64 slots).
// Returns 1 if found, 0 otherwise.
//
//export Lstore_select_pk
func Lstore_select_pk(handle C.longlong, pk C.longlong, out *C.longlong, numColumns C.int) C.int {
	q, _, ok := lookup(handle)
	if !ok {
		return 0
	}
	projection := make([]bool, int(numColumns))
	for i := range projection {
		projection[i] = true
	}
	rows, ok := q.Select(int64(pk), q.Table.PrimaryKeyColumn, projection)
	if !ok || len(rows) == 0 {
		return 0
	}
	writeCLongLongSlice(out, rows[0].Columns)
	return 1
}

// Lstore_delete removes pk. Returns 1 if a row was removed, 0 otherwise.
//
//export Lstore_delete
func Lstore_delete(handle C.longlong, pk C.longlong) C.int {
	q, _, ok := lookup(handle)
	if !ok {
		return 0
	}
	if q.Delete(int64(pk)) {
		return 1
	}
	return 0
}

// Lstore_merge runs one consolidation pass, collapsing accumulated tail
// records into refreshed base images. Returns the number of base rows
// updated, or -1 on an unknown handle or merge failure.
//
//export Lstore_merge
func Lstore_merge(handle C.longlong) C.longlong {
	q, h, ok := lookup(handle)
	if !ok {
		return -1
	}
	result, err := q.Table.Merge()
	setError(h, err)
	if err != nil {
		return -1
	}
	return C.longlong(result.BasesUpdated)
}

// Lstore_error returns the last error string recorded for handle, or an
// empty C string if there is none. Caller owns the returned pointer and
// must free it with Lstore_free.
//
//export Lstore_error
func Lstore_error(handle C.longlong) *C.char {
	h := int64(handle)
	mu.Lock()
	msg := lastError[h]
	mu.Unlock()
	return C.CString(msg)
}

// Lstore_free releases a string previously returned by this package.
//
//export Lstore_free
func Lstore_free(p *C.char) {
	C.free(unsafe.Pointer(p))
}

func cLongLongSlice(p *C.longlong, n int) []int64 {
	out := make([]int64, n)
	if n == 0 {
		return out
	}
	src := unsafe.Slice((*C.longlong)(unsafe.Pointer(p)), n)
	for i, v := range src {
		out[i] = int64(v)
	}
	return out
}

func writeCLongLongSlice(p *C.longlong, values []int64) {
	if len(values) == 0 {
		return
	}
	dst := unsafe.Slice((*C.longlong)(unsafe.Pointer(p)), len(values))
	for i, v := range values {
		dst[i] = C.longlong(v)
	}
}

func main() {}
