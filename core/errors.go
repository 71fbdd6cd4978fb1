package core

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrNotFound     = errors.New("not found")
	ErrInconsistent = errors.New("internal data inconsistency")
	ErrDuplicate    = errors.New("duplicate identifier")
)

// NotFoundError is a keyed-lookup failure: an identifier, a storage representation,
// a coordinate name or a coordinate value has no match.  Callers may retry with a
// corrected key; nothing in brainio retries it.
type NotFoundError struct {
	// Kind is what was looked up, e.g., "assembly", "stimulus_set", "coordinate".
	Kind       string
	Identifier string

	// Detail optionally narrows the lookup, e.g., "CSV" or "zip" for stimulus sets.
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s for %s %s not found", e.Detail, e.Kind, e.Identifier)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.Identifier)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConsistencyError reports catalog data that violates a uniqueness invariant.
// It is fatal and never accompanied by a partial result.
type ConsistencyError struct {
	Kind       string
	Identifier string

	// Count is the number of distinct records that survived deduplication.
	Count  int
	Detail string
}

func (e *ConsistencyError) Error() string {
	msg := fmt.Sprintf("internal data inconsistency: found %d distinct lookup rows for %s %s", e.Count, e.Kind, e.Identifier)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}

// DuplicateError is returned when appending a record would break the uniqueness
// or table/archive pairing rules of a catalog.
type DuplicateError struct {
	Catalog    string
	Kind       string
	Identifier string

	// Existing describes the records already registered under the identifier.
	Existing []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("trying to add duplicate %s identifier %q to catalog %q, existing %v",
		e.Kind, e.Identifier, e.Catalog, e.Existing)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
