package documentdb

import "errors"

// Sentinel errors for the repository layer.
var (
	// ErrNotFound indicates the addressed document, status or sub-document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate indicates a document with the same (domainId, docType, docId) already exists.
	ErrDuplicate = errors.New("document already exists")

	// ErrCappedIncRejected indicates a bounded increment would have left its range.
	// The record is unchanged.
	ErrCappedIncRejected = errors.New("capped increment rejected")

	// ErrInvalidUpdate indicates an operator was applied to a field of the wrong shape.
	ErrInvalidUpdate = errors.New("invalid update")
)
