package radix

import (
	"github.com/pkg/errors"
)

// Failure categories for a sort invocation. Stages and engines wrap these
// with context; callers can classify a failure with errors.Cause().
var (
	// The digit width / group size combination is unusable. Detected before
	// any pass runs, the input is untouched.
	ErrBadConfig = errors.New("Invalid sort configuration")

	// Buffer or histogram storage could not be obtained. The sort is aborted
	// and all acquired resources are released.
	ErrAllocation = errors.New("Failed to allocate sort resources")

	// A stage could not be dispatched or did not complete. The sort is
	// aborted, there is no partial result.
	ErrExecution = errors.New("Sort stage execution failed")
)
