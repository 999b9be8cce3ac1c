package coverage

import "errors"

// Error kinds returned by the package. Callers classify failures with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrConfiguration reports invalid parameters, mismatched sizes or
	// desired areas that cannot be satisfied. Fix the inputs and retry.
	ErrConfiguration = errors.New("configuration error")

	// ErrGeometry reports a violated geometric invariant: too few or
	// duplicate vertices, non-finite coordinates, zero-area polygons or a
	// boundary that could not be constructed.
	ErrGeometry = errors.New("geometry error")

	// ErrAlgorithm reports that a bounded internal search gave up, e.g.
	// default center placement ran out of retries.
	ErrAlgorithm = errors.New("algorithm failure")

	// ErrUnpreparedField is returned by density queries before any values
	// have been set.
	ErrUnpreparedField = errors.New("density values have not been set")
)
