package acquire

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoConvergence matches a ConvergenceError with errors.Is
	ErrNoConvergence = errors.New("exposure did not converge")

	// ErrTimeout matches a TimeoutError with errors.Is
	ErrTimeout = errors.New("operation timed out")

	// ErrNoMount is returned when the settings need a mount and there is none
	ErrNoMount = errors.New("settings require a mount but none was given")

	// ErrRunTwice is returned by Run on a session that has already run
	ErrRunTwice = errors.New("a session can only be run once")
)

// ConvergenceError is generated when too many frames in a row are out of
// tolerance.  It usually means the light source is changing.
type ConvergenceError struct {
	Set        string
	Rejections int
	LastADU    float64
	Target     float64
}

func (e ConvergenceError) Error() string {
	return fmt.Sprintf("%s: %d frames in a row out of tolerance, last was %.0f ADU against a target of %.0f",
		e.Set, e.Rejections, e.LastADU, e.Target)
}

// Is makes a ConvergenceError match ErrNoConvergence
func (e ConvergenceError) Is(target error) bool {
	return target == ErrNoConvergence
}

// TimeoutError is generated when an exposure or slew is not complete within
// its ceiling
type TimeoutError struct {
	// Op is "exposure" or "slew"
	Op    string
	After time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("%s not complete after %v", e.Op, e.After)
}

// Is makes a TimeoutError match ErrTimeout
func (e TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
