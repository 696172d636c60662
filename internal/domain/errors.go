package domain

import "errors"

var (
	// ErrInvalidConfig marks a configuration that cannot be scored with:
	// weights not summing to 1.0 or thresholds out of order. Fatal, raised
	// before any scoring begins.
	ErrInvalidConfig = errors.New("invalid scoring configuration")

	// ErrDataIntegrity marks input records that are unusable. Snapshot-wide
	// critical findings abort the run with this error; per-customer problems
	// (transactions referencing a missing profile, a profile with no usable
	// identity) route the customer into Skipped and the batch continues.
	ErrDataIntegrity = errors.New("data integrity violation")
)
