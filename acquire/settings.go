package acquire

import (
	"time"

	"github.com/nasa-jpl/autoflat/dither"
	"github.com/nasa-jpl/autoflat/plan"
)

// Settings are the knobs of a session
type Settings struct {
	Target      float64
	Tolerance   float64
	MinExposure float64
	MaxExposure float64
	MaxRetries  int

	Poll            time.Duration
	ExposureCeiling time.Duration
	SlewCeiling     time.Duration

	// Dither radii are in radians
	Dither      bool
	DitherStep  float64
	DitherMax   float64
	DitherSteps int

	Home        bool
	SlewToLight bool
	LightAlt    float64
	LightAz     float64
	TrackingOff bool
	Park        bool
	WarmUp      bool

	// SaveDir is where accepted frames go; empty is the server's autosave folder
	SaveDir string
}

// SettingsFromPlan extracts the session settings from a plan
func SettingsFromPlan(p plan.Plan) Settings {
	step, max := p.DitherRadians()
	steps := p.Dither.Steps
	if steps < 1 {
		steps = dither.DefaultSteps
	}
	return Settings{
		Target:          p.Target,
		Tolerance:       p.Tolerance,
		MinExposure:     p.MinExposure,
		MaxExposure:     p.MaxExposure,
		MaxRetries:      p.MaxRetries,
		Poll:            p.PollInterval(),
		ExposureCeiling: p.ExposureTimeout(),
		SlewCeiling:     p.SlewTimeout(),
		Dither:          p.Dither.Enabled,
		DitherStep:      step,
		DitherMax:       max,
		DitherSteps:     steps,
		Home:            p.Mount.Home,
		SlewToLight:     p.Mount.SlewToLight,
		LightAlt:        p.Mount.Alt,
		LightAz:         p.Mount.Az,
		TrackingOff:     p.Mount.TrackingOff,
		Park:            p.Mount.Park,
		WarmUp:          p.WarmUp,
		SaveDir:         p.SaveDir}
}

// needsMount is true if any setting drives the mount
func (s Settings) needsMount() bool {
	return s.Home || s.SlewToLight || s.TrackingOff || s.Park || s.Dither
}
