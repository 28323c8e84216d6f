package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested build or manifest does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidFilter indicates filter criteria that could not be parsed.
	// Callers must surface it rather than falling back to "no filter".
	ErrInvalidFilter = errors.New("invalid filter criteria")

	// ErrRejected indicates a raw record is not a build of the catalogued
	// product (wrong product marker or wrong record type).
	// Rejected records are skipped and logged, never surfaced to query callers.
	ErrRejected = errors.New("record rejected")

	// ErrAccessorUnavailable indicates the corpus or manifest accessor
	// failed or timed out. It is retryable; the core never retries itself.
	ErrAccessorUnavailable = errors.New("corpus accessor unavailable")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrIngestInProgress indicates an ingest run is already active.
	ErrIngestInProgress = errors.New("ingest in progress")
)
