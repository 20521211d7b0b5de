package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the event bus return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness or idempotency key already taken
// - ErrInvalidState: entity in wrong state for the requested transition
//   (e.g. reserving a slot that is no longer open)
// - ErrUnavailable: storage or broker temporarily unreachable; callers may
//   retry and event handlers must not acknowledge
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
