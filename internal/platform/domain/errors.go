package platform

import "errors"

var (
	// ErrSensorResolutionConflict is returned when the target sensor exists at a
	// different resolution than requested and the policy forbids reuse.
	ErrSensorResolutionConflict = errors.New("platform: sensor resolution conflict")
	// ErrInvalidBelief is returned when a belief lacks a sensor, source or timestamps.
	ErrInvalidBelief = errors.New("platform: invalid belief")
	// ErrUnitMismatch is returned when a series unit differs from the sensor unit.
	ErrUnitMismatch = errors.New("platform: unit mismatch")
	// ErrNotFound is returned by remote adapters for missing records.
	ErrNotFound = errors.New("platform: not found")
)
