package skyx

import (
	"math/rand"
	"sync"

	"github.com/nasa-jpl/autoflat/util"
)

// MaxADU is the largest value a 16-bit sensor can report
const MaxADU = 65535

// ADUModel estimates the average signal of a flat frame from the parameters
// of its exposure
type ADUModel interface {
	Estimate(seconds float64, binning, slot int) float64
}

// Fit is a linear model of mean ADU against exposure time in seconds
type Fit struct {
	Slope     float64
	Intercept float64
}

// FitKey selects a Fit by binning and one-based filter slot.  Slot zero is
// used for any filter without a fit of its own.
type FitKey struct {
	Binning int
	Slot    int
}

// DefaultFits were measured on a 16-bit CMOS camera in front of an
// electroluminescent panel at its lowest brightness.  Slots follow the usual
// L, R, G, B, Ha wheel.
var DefaultFits = map[FitKey]Fit{
	{1, 0}: {Slope: 1000, Intercept: 1000},
	{1, 1}: {Slope: 2480, Intercept: 1030},
	{1, 2}: {Slope: 860, Intercept: 1010},
	{1, 3}: {Slope: 1040, Intercept: 1015},
	{1, 4}: {Slope: 720, Intercept: 1005},
	{1, 5}: {Slope: 61, Intercept: 1000},
	{2, 0}: {Slope: 3950, Intercept: 1020},
	{2, 1}: {Slope: 9650, Intercept: 1060},
	{2, 2}: {Slope: 3390, Intercept: 1030},
	{2, 3}: {Slope: 4120, Intercept: 1040},
	{2, 4}: {Slope: 2840, Intercept: 1020},
	{2, 5}: {Slope: 240, Intercept: 1002},
}

// LinearADUModel is an ADUModel built from per filter and binning linear
// fits plus gaussian noise, clipped to [0, MaxADU]
type LinearADUModel struct {
	Fits map[FitKey]Fit

	// Noise is the standard deviation of the noise, in ADU
	Noise float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLinearADUModel returns a model using DefaultFits with 50 ADU of noise.
// The same seed always produces the same sequence of estimates.
func NewLinearADUModel(seed int64) *LinearADUModel {
	return &LinearADUModel{
		Fits:  DefaultFits,
		Noise: 50,
		rng:   rand.New(rand.NewSource(seed))}
}

// fit finds the model for a combination.  Without an exact match, the slope
// of the nearest known binning is scaled by the ratio of pixel areas.
func (m *LinearADUModel) fit(binning, slot int) Fit {
	if f, ok := m.Fits[FitKey{binning, slot}]; ok {
		return f
	}
	for _, s := range []int{slot, 0} {
		for _, b := range []int{2, 1} {
			if f, ok := m.Fits[FitKey{b, s}]; ok {
				scale := float64(binning*binning) / float64(b*b)
				return Fit{Slope: f.Slope * scale, Intercept: f.Intercept}
			}
		}
	}
	return Fit{Slope: 1000 * float64(binning*binning), Intercept: 1000}
}

// Estimate implements ADUModel
func (m *LinearADUModel) Estimate(seconds float64, binning, slot int) float64 {
	if binning < 1 {
		binning = 1
	}
	f := m.fit(binning, slot)
	adu := f.Slope*seconds + f.Intercept
	if m.Noise > 0 {
		m.mu.Lock()
		if m.rng == nil {
			m.rng = rand.New(rand.NewSource(1))
		}
		adu += m.rng.NormFloat64() * m.Noise
		m.mu.Unlock()
	}
	return util.Clamp(adu, 0, MaxADU)
}
