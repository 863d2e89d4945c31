package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies storage-related errors.
type ErrorType string

const (
	ErrNotFound     ErrorType = "not_found"
	ErrConflict     ErrorType = "conflict"
	ErrInvalidInput ErrorType = "invalid_input"
	ErrInternal     ErrorType = "internal"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a not_found storage error.
func IsNotFound(err error) bool {
	return hasType(err, ErrNotFound)
}

// IsConflict reports whether err is a conflict storage error, e.g. a
// uniqueness-constraint violation on (parent_ref, original_anchor).
func IsConflict(err error) bool {
	return hasType(err, ErrConflict)
}

func hasType(err error, t ErrorType) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Type == t
}

// Store connects a backend database with this library. Please use the error
// types provided.
//
// Implementations must enforce uniqueness of (parent_ref, original_anchor)
// among non-deleted instances, reporting a conflict error from
// Tx.CreateOccurrence when it is violated: two concurrent materializations
// of the same virtual occurrence race between lookup and create, and the
// loser has to fail loudly rather than silently duplicate the row.
type Store interface {
	// GetOccurrence retrieves one occurrence by ID, including soft-deleted
	// rows.
	GetOccurrence(ctx context.Context, id string) (*Occurrence, error)

	// FindInstanceByAnchor finds the instance of the given parent whose
	// original anchor matches exactly. Soft-deleted rows are included; a
	// live row wins over a deleted one when both exist. Returns a
	// not_found error when no row matches.
	FindInstanceByAnchor(ctx context.Context, parentID string, anchor time.Time) (*Occurrence, error)

	// ListInstances returns the instances of the given parent, filtered by
	// opts, ordered by original anchor ascending.
	ListInstances(ctx context.Context, parentID string, opts ListOptions) ([]*Occurrence, error)

	// InTx runs fn inside a single atomic transaction: every write fn
	// performs is committed together or not at all. Returning an error
	// from fn rolls the transaction back and propagates the error.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// CreateOccurrence inserts a new row. Returns a conflict error when a
	// live instance with the same (parent_ref, original_anchor) exists.
	CreateOccurrence(ctx context.Context, occ *Occurrence) error

	// UpdateOccurrence overwrites an existing row by ID.
	UpdateOccurrence(ctx context.Context, occ *Occurrence) error

	// SoftDeleteOccurrence marks a row deleted without removing it; the
	// row remains visible to exact-anchor lookups.
	SoftDeleteOccurrence(ctx context.Context, id string) error
}
