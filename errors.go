package sed

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("sed: model file not found")

	// ErrInvalidModel indicates the model file exists but is malformed.
	ErrInvalidModel = errors.New("sed: invalid model format")

	// ErrNoLabels indicates an empty class vocabulary was supplied.
	ErrNoLabels = errors.New("sed: no class labels")

	// ErrClosed indicates the detector has been closed.
	ErrClosed = errors.New("sed: detector is closed")
)
