package model

import "errors"

var (
	// ErrInvalidValue marks a NaN, infinite or non-numeric observation.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInsufficientHistory means a transform lacks the lookback it needs.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrNoObservations means a merge received nothing usable.
	ErrNoObservations = errors.New("no valid observations")
	// ErrCorruptStore means the master file could not be decoded.
	ErrCorruptStore = errors.New("corrupt store")
	// ErrMergeFailure wraps any failure local to one indicator.
	ErrMergeFailure = errors.New("merge failure")
	// ErrPersistenceFailure wraps any failure writing the master file.
	ErrPersistenceFailure = errors.New("persistence failure")
)
