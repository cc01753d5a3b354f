package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed input: an out-of-range comparison
	// count, a too-short question, a duplicate document id. Rejected
	// immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrExtraction indicates text could not be pulled out of an uploaded
	// file. Fatal for that ingest.
	ErrExtraction = errors.New("extraction failed")

	// ErrNoChunks indicates no chunks could be produced from a document.
	// Fatal for that ingest; the document is not registered.
	ErrNoChunks = errors.New("no chunks extracted")

	// ErrRetrieval indicates the index adapter failed. Terminal for the
	// current request; the caller owns any retry policy.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the generation service failed or returned
	// empty output. Terminal for the current request.
	ErrGeneration = errors.New("generation failed")
)
