package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and gateways return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrExpired: staging record or session has expired
// - ErrConflict: provider-scoped uniqueness would be violated
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: external service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/derrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
