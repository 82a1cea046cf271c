package page

import (
	"errors"
	"testing"
	"time"

	"github.com/coltab/lstore/engineerr"
)

func TestWriteReadAppendsAndReturnsOffsets(t *testing.T) {
	p := New(0)
	off0, err := p.Write(10)
	if err != nil || off0 != 0 {
		t.Fatalf("Write(10) = %d, %v; want 0, nil", off0, err)
	}
	off1, err := p.Write(20)
	if err != nil || off1 != 1 {
		t.Fatalf("Write(20) = %d, %v; want 1, nil", off1, err)
	}
	if v, ok := p.Read(0); !ok || v != 10 {
		t.Fatalf("Read(0) = %d, %v; want 10, true", v, ok)
	}
	if v, ok := p.Read(1); !ok || v != 20 {
		t.Fatalf("Read(1) = %d, %v; want 20, true", v, ok)
	}
	if p.NumRecords() != 2 {
		t.Fatalf("NumRecords() = %d, want 2", p.NumRecords())
	}
}

func TestReadPastEndReturnsFalse(t *testing.T) {
	p := New(0)
	p.Write(1)
	if _, ok := p.Read(5); ok {
		t.Fatalf("Read(5): expected false")
	}
}

func TestOverwriteReplacesInPlace(t *testing.T) {
	p := New(0)
	off, _ := p.Write(1)
	if err := p.Overwrite(off, 99); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}
	if v, _ := p.Read(off); v != 99 {
		t.Fatalf("Read after Overwrite = %d, want 99", v)
	}
	if p.NumRecords() != 1 {
		t.Fatalf("Overwrite should not change NumRecords, got %d", p.NumRecords())
	}
}

func TestOverwriteOutOfRangeFails(t *testing.T) {
	p := New(0)
	if err := p.Overwrite(0, 1); err == nil {
		t.Fatalf("Overwrite on empty page: expected error")
	}
}

func TestCapacityRejectsWritesPastLimit(t *testing.T) {
	p := NewWithCapacity(2, 0)
	if _, err := p.Write(1); err != nil {
		t.Fatalf("Write 1/2: %v", err)
	}
	if _, err := p.Write(2); err != nil {
		t.Fatalf("Write 2/2: %v", err)
	}
	if p.HasCapacity() {
		t.Fatalf("HasCapacity() at limit: expected false")
	}
	if _, err := p.Write(3); err == nil {
		t.Fatalf("Write past capacity: expected error")
	}
}

func TestWriteTimesOutOnContendedLock(t *testing.T) {
	p := New(20 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.Write(1); !errors.Is(err, engineerr.ErrLockTimeout) {
		t.Fatalf("Write on held lock = %v, want ErrLockTimeout", err)
	}
}

func TestZeroLockTimeoutWriteSucceeds(t *testing.T) {
	p := New(0)
	if _, err := p.Write(1); err != nil {
		t.Fatalf("Write with no lock timeout configured: %v", err)
	}
}

func TestUnboundedPageAlwaysHasCapacity(t *testing.T) {
	p := New(0)
	for i := 0; i < 1000; i++ {
		if _, err := p.Write(int64(i)); err != nil {
			t.Fatalf("Write(%d): %v", i, err)
		}
	}
	if !p.HasCapacity() {
		t.Fatalf("HasCapacity() on unbounded page: expected true")
	}
}
