package domain

import "errors"

var (
	// ErrSourceUnavailable means the track source could not be opened or read.
	ErrSourceUnavailable = errors.New("track source unavailable")
	// ErrMalformedSource means the source was readable but not a valid track.
	ErrMalformedSource = errors.New("malformed track source")
	// ErrInsufficientData means too few usable samples for the requested stage.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrOutputWrite means an output artifact could not be persisted.
	ErrOutputWrite = errors.New("output write failed")
	// ErrNotFound is returned by repositories for unknown IDs.
	ErrNotFound = errors.New("not found")
)

// IsInputError reports whether err stems from the track itself, so retrying
// the same input cannot succeed.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMalformedSource) || errors.Is(err, ErrInsufficientData)
}
