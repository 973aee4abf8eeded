package referenceframe

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrEmptyFrameName is returned when a transform names an empty parent or child frame.
var ErrEmptyFrameName = errors.New("frame name cannot be empty")

// NewFrameMissingError returns an error indicating that the given frame is not in the frame system.
func NewFrameMissingError(name string) error {
	return errors.Errorf("frame with name %q not in frame system", name)
}

// NewFramesNotConnectedError returns an error indicating both frames exist but share no ancestor.
func NewFramesNotConnectedError(target, source string) error {
	return errors.Errorf("frames %q and %q are not part of the same tree", target, source)
}

// NewSelfParentError returns an error indicating a frame was given itself as a parent.
func NewSelfParentError(name string) error {
	return errors.Errorf("frame %q cannot be its own parent", name)
}

// NewCycleError returns an error indicating that attaching child to parent would create a loop.
func NewCycleError(child, parent string) error {
	return errors.Errorf("attaching frame %q to %q would create a cycle", child, parent)
}

// NewExtrapolationError returns an error indicating a lookup time outside of the buffered history of a frame.
func NewExtrapolationError(frame string, at, oldest, newest time.Time) error {
	return errors.Errorf(
		"lookup of frame %q at %s requires extrapolation, buffered data covers %s to %s",
		frame, at.Format(time.RFC3339Nano), oldest.Format(time.RFC3339Nano), newest.Format(time.RFC3339Nano),
	)
}

// lookupTimeoutError is returned when no transform became available before the timeout.
type lookupTimeoutError struct {
	target  string
	source  string
	timeout time.Duration
	cause   error
}

// NewLookupTimeoutError returns an error indicating that a transform from source to target could
// not be found within timeout. The last lookup failure is kept as the cause.
func NewLookupTimeoutError(target, source string, timeout time.Duration, cause error) error {
	return &lookupTimeoutError{target: target, source: source, timeout: timeout, cause: cause}
}

func (e *lookupTimeoutError) Error() string {
	msg := fmt.Sprintf("could not transform %q to %q within %v", e.source, e.target, e.timeout)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *lookupTimeoutError) Unwrap() error {
	return e.cause
}

// IsLookupTimeout reports whether err, or anything it wraps, is a lookup timeout.
func IsLookupTimeout(err error) bool {
	var timeoutErr *lookupTimeoutError
	return errors.As(err, &timeoutErr)
}
