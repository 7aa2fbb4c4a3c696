package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: form instance or roster row does not exist
//   - ErrExpired: form instance outlived its TTL
//   - ErrConflict: concurrent writers raced on the same record
//   - ErrInvalidState: record is in the wrong lifecycle state for the operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// Field validation failures are not sentinels; they are reported per field.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
