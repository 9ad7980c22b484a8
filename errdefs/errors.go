// Package errdefs - Error kinds shared by the vision pipeline.
//
// Every failure returned by the pipeline wraps exactly one of the sentinel kinds below, so callers can
// branch with errors.Is while still getting the wrapped message and stack trace.
package errdefs

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput reports a malformed frame or tensor: zero or negative dimensions, an empty image,
	// or a buffer whose length does not match the declared shape.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngine reports a failure propagated from the inference engine. It is fatal to the current frame
	// only.
	ErrEngine = errors.New("engine error")
	// ErrConfig reports an invalid configuration, such as a threshold outside [0, 1] or a zero class count.
	ErrConfig = errors.New("config error")
)

// InvalidInput returns an error of kind ErrInvalidInput.
//
// Arguments:
//   - format: The printf-style message.
//   - args: The message arguments.
//
// Returns:
//   - An error wrapping ErrInvalidInput.
func InvalidInput(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// Config returns an error of kind ErrConfig.
func Config(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// Engine wraps err as an error of kind ErrEngine. A nil err yields nil.
//
// The cause message is kept so the original runtime failure stays visible in logs.
func Engine(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEngine) {
		return errors.WithMessage(err, message)
	}
	return errors.Wrapf(ErrEngine, "%s: %v", message, err)
}

// Is reports whether err is of the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
