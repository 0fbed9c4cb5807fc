// Package flat holds the in-memory description of the flat frames a session
// must acquire, and the arithmetic used to accept frames and refine exposures.
package flat

import (
	"fmt"
	"math"
	"strconv"
)

// Filter identifies one position of the filter wheel
type Filter struct {
	// Slot is the one-based wheel position
	Slot int

	// Name is the human name of the filter, e.g. "Lum" or "Ha"
	Name string
}

// String returns the name of the filter, or "slot-N" if it has none
func (f Filter) String() string {
	if f.Name != "" {
		return f.Name
	}
	return "slot-" + strconv.Itoa(f.Slot)
}

// Key identifies a filter and binning combination, which is what exposure
// estimates are remembered by
type Key struct {
	Filter  string
	Binning int
}

// String renders the key as filter/binning, e.g. "Lum/2"
func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Filter, k.Binning)
}

// FrameSet is one filter and binning combination to acquire
type FrameSet struct {
	filter  Filter
	binning int

	// Wanted is the number of frames to acquire
	Wanted int

	// Done is the number of frames accepted so far
	Done int

	// Exposure is the working exposure estimate in seconds
	Exposure float64
}

// NewFrameSet returns a FrameSet for the given filter and binning, seeded
// with the given exposure estimate
func NewFrameSet(f Filter, binning, wanted int, exposure float64) (*FrameSet, error) {
	if binning < 1 {
		return nil, fmt.Errorf("binning must be at least 1, got %d", binning)
	}
	if wanted < 0 {
		return nil, fmt.Errorf("frame count must not be negative, got %d", wanted)
	}
	return &FrameSet{filter: f, binning: binning, Wanted: wanted, Exposure: exposure}, nil
}

// Filter returns the filter of the set
func (s *FrameSet) Filter() Filter {
	return s.filter
}

// Binning returns the binning of the set
func (s *FrameSet) Binning() int {
	return s.binning
}

// Key returns the estimate key of the set
func (s *FrameSet) Key() Key {
	return Key{Filter: s.filter.String(), Binning: s.binning}
}

// Complete is true once Done has reached Wanted
func (s *FrameSet) Complete() bool {
	return s.Done >= s.Wanted
}

// Remaining is the number of frames still to acquire
func (s *FrameSet) Remaining() int {
	if s.Complete() {
		return 0
	}
	return s.Wanted - s.Done
}

// String describes the set, e.g. "4 x Lum 2x2 (1 done)"
func (s *FrameSet) String() string {
	return fmt.Sprintf("%d x %s %dx%d (%d done)", s.Wanted, s.filter, s.binning, s.binning, s.Done)
}

// Binnings returns the binning of every set, in order, with duplicates
func Binnings(sets []*FrameSet) []int {
	out := make([]int, len(sets))
	for i, s := range sets {
		out[i] = s.binning
	}
	return out
}

// InTolerance reports if measured is within tol (a fraction, 0.1 is 10%) of
// target.  A non-positive target is never in tolerance.
func InTolerance(measured, target, tol float64) bool {
	if target <= 0 {
		return false
	}
	return math.Abs(measured-target)/target <= tol
}

// Refine returns the exposure expected to produce target, assuming the signal
// is proportional to exposure time: next = current / (measured/target).
//
// The assumption fails for saturated frames and for exposures so short the
// bias level dominates; the result is clamped to [min, max] so those cases
// can not run away.  A non-positive measurement carries no information about
// the slope and refines to max.
func Refine(current, measured, target, min, max float64) float64 {
	if measured <= 0 {
		return max
	}
	next := current / (measured / target)
	if next < min {
		return min
	}
	if next > max {
		return max
	}
	return next
}
