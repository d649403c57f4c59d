package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Store implementations return these
// (optionally wrapped) so services can translate them into domain errors
// without inspecting error strings.
//
// These describe factual states of a stored resource:
// - ErrNotFound: entity does not exist in the store
// - ErrExpired: session/device code is past its expiry
// - ErrAlreadyUsed: consume-once resource (device code, refresh token) spent
// - ErrConflict: unique key already taken (user code, token)
// - ErrInvalidState: entity in the wrong state for the requested operation
// - ErrUnavailable: backing store unreachable
//
// Validation failures belong to pkg/domain-errors, not here.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
