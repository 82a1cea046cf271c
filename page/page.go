// Package page implements PhysicalPage, the append-only vector of signed
// 64-bit cells that is the atomic storage unit of the engine.
package page

import (
	"sync"
	"time"

	"github.com/coltab/lstore/engineerr"
)

// Page is an append-only vector of int64 cells plus an overwrite primitive.
// Every Page is guarded by its own mutex: operations acquire per-page
// locks, do their work, and release before moving to the next page an
// operation touches. A non-zero lockTimeout bounds how long Write,
// Overwrite, and Read wait for a contended page before giving up with
// engineerr.ErrLockTimeout.
type Page struct {
	mu          sync.Mutex
	lockTimeout time.Duration
	data        []int64
	capacity    int // 0 means unbounded
}

// New returns an empty page with no capacity cap. lockTimeout of 0 means
// Write/Overwrite/Read block indefinitely for the page's lock, matching
// config.Config's zero value.
func New(lockTimeout time.Duration) *Page {
	return &Page{lockTimeout: lockTimeout}
}

// NewWithCapacity returns an empty page that rejects writes once it holds
// capacity cells. A capacity of 0 means unbounded, same as New.
func NewWithCapacity(capacity int, lockTimeout time.Duration) *Page {
	return &Page{capacity: capacity, lockTimeout: lockTimeout}
}

// lock acquires the page's mutex, polling with TryLock against lockTimeout
// instead of blocking forever once a timeout is configured — the mutex
// itself carries no deadline, so this is the only way to bound the wait.
func (p *Page) lock() error {
	if p.lockTimeout <= 0 {
		p.mu.Lock()
		return nil
	}
	deadline := time.Now().Add(p.lockTimeout)
	for {
		if p.mu.TryLock() {
			return nil
		}
		if time.Now().After(deadline) {
			return engineerr.ErrLockTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

// NumRecords returns the number of cells currently stored.
func (p *Page) NumRecords() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data)
}

// HasCapacity reports whether the page will accept another Write.
func (p *Page) HasCapacity() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasCapacityLocked()
}

func (p *Page) hasCapacityLocked() bool {
	if p.capacity == 0 {
		return true
	}
	return len(p.data) < p.capacity
}

// Write appends v and returns the offset it was written at. It returns
// engineerr.ErrOutOfRange if the page is at capacity, or
// engineerr.ErrLockTimeout if the page's lock stayed contended past its
// configured timeout.
func (p *Page) Write(v int64) (int, error) {
	if err := p.lock(); err != nil {
		return 0, err
	}
	defer p.mu.Unlock()
	if !p.hasCapacityLocked() {
		return 0, engineerr.ErrOutOfRange
	}
	p.data = append(p.data, v)
	return len(p.data) - 1, nil
}

// Overwrite replaces the cell at offset. It fails with
// engineerr.ErrOutOfRange if offset is at or past the page's length, or
// engineerr.ErrLockTimeout on a contended lock past its configured timeout.
func (p *Page) Overwrite(offset int, v int64) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.mu.Unlock()
	if offset < 0 || offset >= len(p.data) {
		return engineerr.ErrOutOfRange
	}
	p.data[offset] = v
	return nil
}

// Read returns the cell at offset. The second return is false when offset
// is at or past the page's length, or when the page's lock stayed
// contended past its configured timeout — there is no sentinel value for
// "missing", absence is represented purely by this bool.
func (p *Page) Read(offset int) (int64, bool) {
	if err := p.lock(); err != nil {
		return 0, false
	}
	defer p.mu.Unlock()
	if offset < 0 || offset >= len(p.data) {
		return 0, false
	}
	return p.data[offset], true
}
