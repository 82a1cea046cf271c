// Package engineerr holds the sentinel errors shared by the storage and
// indexing layers. Query and Table collapse these into the bool/ok-shaped
// results documented at the public surface; callers below that boundary
// deal in real errors.
package engineerr

import "errors"

var (
	// ErrNotFound means a primary key, RID, or offset has no current mapping.
	ErrNotFound = errors.New("lstore: not found")

	// ErrDuplicateKey means an insert or update would collide with a live primary key.
	ErrDuplicateKey = errors.New("lstore: duplicate primary key")

	// ErrArityMismatch means a values or patch vector's length does not match
	// the container's column count. The container layer treats this as a
	// programmer error: it aborts the single operation, it does not try to
	// recover a partial write.
	ErrArityMismatch = errors.New("lstore: column count mismatch")

	// ErrOutOfRange means a page read or overwrite addressed an offset at or
	// past the page's current length.
	ErrOutOfRange = errors.New("lstore: offset out of range")

	// ErrLockTimeout means a page lock could not be acquired within the
	// configured timeout.
	ErrLockTimeout = errors.New("lstore: lock acquisition timed out")
)
