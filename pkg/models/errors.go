package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a lookup misses.
var ErrNotFound = errors.New("not found")

// MalformedRecordError means a raw row could not be normalized into a
// CatalogRecord. The record is skipped; the batch continues.
type MalformedRecordError struct {
	Survey   string
	SourceID string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("malformed record from survey %q: %s", e.Survey, e.Reason)
	}
	return fmt.Sprintf("malformed record %s/%s: %s", e.Survey, e.SourceID, e.Reason)
}

// NewMalformedRecord creates a MalformedRecordError with a formatted reason.
func NewMalformedRecord(survey, sourceID, format string, args ...any) *MalformedRecordError {
	return &MalformedRecordError{Survey: survey, SourceID: sourceID, Reason: fmt.Sprintf(format, args...)}
}

// IsMalformedRecord reports whether err is a MalformedRecordError.
func IsMalformedRecord(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}

// AmbiguousDuplicateError means a record matched an object that already
// carries a different record from the same survey. It is never merged
// silently; the record is parked for review.
type AmbiguousDuplicateError struct {
	Survey   string
	SourceID string
	ObjectID string
}

func (e *AmbiguousDuplicateError) Error() string {
	return fmt.Sprintf("ambiguous duplicate: survey %q already contributed to object %s (incoming source %s)", e.Survey, e.ObjectID, e.SourceID)
}

// IsAmbiguousDuplicate reports whether err is an AmbiguousDuplicateError.
func IsAmbiguousDuplicate(err error) bool {
	var target *AmbiguousDuplicateError
	return errors.As(err, &target)
}

// IndexInconsistencyError means the spatial index returned an object id
// the store cannot load. The index and store have diverged.
type IndexInconsistencyError struct {
	ObjectID string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("index inconsistency: object %s present in spatial index but missing from store", e.ObjectID)
}

// IsIndexInconsistency reports whether err is an IndexInconsistencyError.
func IsIndexInconsistency(err error) bool {
	var target *IndexInconsistencyError
	return errors.As(err, &target)
}

// StoreUnavailableError wraps a transient store failure. Callers may retry.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// NewStoreUnavailable wraps err as a StoreUnavailableError for op.
func NewStoreUnavailable(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}

// IsStoreUnavailable reports whether err is a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}
