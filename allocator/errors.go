package allocator

import "github.com/cockroachdb/errors"

var (
	// ErrZeroSize is returned when an allocation of zero bytes is requested
	ErrZeroSize = errors.New("allocation size must be greater than zero")
	// ErrOutOfSpace is returned when no contiguous run of free blocks is large enough
	ErrOutOfSpace = errors.New("not enough space")
	// ErrInvalidOffset is returned when a freed offset lies outside the pool
	ErrInvalidOffset = errors.New("offset is outside of the pool")
	// ErrNotReady is returned when freeing into a bank that was never initialized
	ErrNotReady = errors.New("bank is not ready")
	// ErrInvalidBank is returned for a bank id outside of the registry
	ErrInvalidBank = errors.New("invalid bank id")
	// ErrForeignAddress is returned when an address belongs to no bank
	ErrForeignAddress = errors.New("address does not belong to any bank")
)
