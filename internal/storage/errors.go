// Package storage defines the error taxonomy and key schema shared by the
// repositories. Every mutating operation is built from two store primitives:
// insert-if-absent (a unique-key insert) and conditional update (an UPDATE
// whose WHERE clause may match nothing). A failed condition is never an
// error at the business level; everything else is treated as transient and
// surfaced so the message stays unacknowledged.
package storage

import (
	"errors"

	"gorm.io/gorm"
)

// ErrConditionFailed reports that a conditional update matched no row: the
// guarded precondition no longer holds.
var ErrConditionFailed = errors.New("storage: condition failed")

// IsConditionFailed reports whether err is a failed write precondition,
// either an insert against an existing key or a guarded update that matched
// nothing. Callers convert these to their duplicate/no-op results.
func IsConditionFailed(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrConditionFailed)
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
