/*Package plan describes an acquisition session: which flats to take, what
they should look like, and how to drive the mount while taking them.

A Plan is loaded in three layers, each overriding the last:
	1.  Default()
	2.  a YAML file, if it exists
	3.  environment variables prefixed AUTOFLAT_, e.g. AUTOFLAT_TARGET=30000
		or AUTOFLAT_DITHER_ENABLED=true

The frame sets can only come from the file.
*/
package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/nasa-jpl/autoflat/flat"
	"github.com/nasa-jpl/autoflat/mathx"
	"github.com/nasa-jpl/autoflat/util"
)

// EnvPrefix is the prefix of environment variables that override the file
const EnvPrefix = "AUTOFLAT_"

// FrameSpec requests Count flats through one filter at one binning
type FrameSpec struct {
	// Filter is the name of the filter, used for file names and estimates
	Filter string `koanf:"filter" yaml:"filter"`

	// Slot is the one-based filter wheel position
	Slot int `koanf:"slot" yaml:"slot"`

	Binning int `koanf:"binning" yaml:"binning"`
	Count   int `koanf:"count" yaml:"count"`

	// Exposure is the starting exposure in seconds, used when there is no
	// remembered estimate for this filter and binning
	Exposure float64 `koanf:"exposure" yaml:"exposure"`
}

// Dither configures the spiral of pointings between frames
type Dither struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`

	// Step is the radial spacing of the rings, arc-seconds
	Step float64 `koanf:"step" yaml:"step"`

	// Max is the largest ring radius, arc-seconds
	Max float64 `koanf:"max" yaml:"max"`

	// Steps is the number of pointings on the innermost ring
	Steps int `koanf:"steps" yaml:"steps"`
}

// Mount configures what is done with the mount around the session
type Mount struct {
	// Home homes the mount before anything else
	Home bool `koanf:"home" yaml:"home"`

	// SlewToLight points the mount at Alt, Az before the first frame
	SlewToLight bool    `koanf:"slewtolight" yaml:"slewtolight"`
	Alt         float64 `koanf:"alt" yaml:"alt"`
	Az          float64 `koanf:"az" yaml:"az"`

	// TrackingOff keeps sidereal tracking off while the flats are taken
	TrackingOff bool `koanf:"trackingoff" yaml:"trackingoff"`

	// Park parks the mount when the session is complete
	Park bool `koanf:"park" yaml:"park"`
}

// Plan is everything needed to run a session
type Plan struct {
	// Addr is the host:port of the TheSkyX server
	Addr string `koanf:"addr" yaml:"addr"`

	// Rate limits commands to the server, per second.  Zero is unlimited.
	Rate float64 `koanf:"rate" yaml:"rate"`

	// DialTimeout and ResponseTimeout are in seconds
	DialTimeout     float64 `koanf:"dialtimeout" yaml:"dialtimeout"`
	ResponseTimeout float64 `koanf:"responsetimeout" yaml:"responsetimeout"`

	Sets []FrameSpec `koanf:"sets" yaml:"sets"`

	// Target is the desired mean ADU of a flat
	Target float64 `koanf:"target" yaml:"target"`

	// Tolerance is the accepted fractional error about Target, 0.1 is 10%
	Tolerance float64 `koanf:"tolerance" yaml:"tolerance"`

	// MinExposure and MaxExposure bound the exposure estimate, seconds
	MinExposure float64 `koanf:"minexposure" yaml:"minexposure"`
	MaxExposure float64 `koanf:"maxexposure" yaml:"maxexposure"`

	// MaxRetries is the number of consecutive rejected frames tolerated;
	// one more fails the session
	MaxRetries int `koanf:"maxretries" yaml:"maxretries"`

	// Poll is the completion polling interval, seconds
	Poll float64 `koanf:"poll" yaml:"poll"`

	// ExposureCeiling and SlewCeiling bound the time spent polling, seconds
	ExposureCeiling float64 `koanf:"exposureceiling" yaml:"exposureceiling"`
	SlewCeiling     float64 `koanf:"slewceiling" yaml:"slewceiling"`

	Dither Dither `koanf:"dither" yaml:"dither"`
	Mount  Mount  `koanf:"mount" yaml:"mount"`

	// WarmUp turns off cooling when the session is complete
	WarmUp bool `koanf:"warmup" yaml:"warmup"`

	// SaveDir is where accepted frames are written.  Empty uses the
	// server's autosave folder.
	SaveDir string `koanf:"savedir" yaml:"savedir"`

	// Estimates is the path of the remembered exposure estimates
	Estimates string `koanf:"estimates" yaml:"estimates"`

	// HTTP is the listen address of the status server.  Empty disables it.
	HTTP string `koanf:"http" yaml:"http"`

	// Simulate replaces measured ADU with a model of a typical camera
	Simulate bool `koanf:"simulate" yaml:"simulate"`
}

// Default returns a plan for sixteen luminance flats at 1x1 against a server
// on this machine
func Default() Plan {
	return Plan{
		Addr:            "localhost:3040",
		Rate:            20,
		DialTimeout:     3,
		ResponseTimeout: 300,
		Sets: []FrameSpec{
			{Filter: "Lum", Slot: 1, Binning: 1, Count: 16, Exposure: 1},
		},
		Target:          25000,
		Tolerance:       0.1,
		MinExposure:     0.01,
		MaxExposure:     60,
		MaxRetries:      10,
		Poll:            0.5,
		ExposureCeiling: 120,
		SlewCeiling:     180,
		Dither:          Dither{Step: 30, Max: 300, Steps: 8},
		Estimates:       "autoflat-estimates.yml",
		HTTP:            ":8000"}
}

// envKey maps AUTOFLAT_DITHER_ENABLED to dither.enabled
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
}

// Load builds a Plan from the defaults, the YAML file at path and the
// environment.  A missing file is not an error.
func Load(path string) (Plan, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Plan{}, err
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Plan{}, fmt.Errorf("error loading plan %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Plan{}, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Plan{}, err
	}
	var p Plan
	if err := k.Unmarshal("", &p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate returns an error describing every problem with the plan, or nil
func (p Plan) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if p.Addr == "" {
		bad("addr must not be empty")
	}
	if len(p.Sets) == 0 {
		bad("no frame sets requested")
	}
	for i, s := range p.Sets {
		if s.Binning < 1 {
			bad("set %d: binning must be at least 1, got %d", i, s.Binning)
		}
		if s.Count < 0 {
			bad("set %d: count must not be negative, got %d", i, s.Count)
		}
		if s.Slot < 1 {
			bad("set %d: filter slot must be at least 1, got %d", i, s.Slot)
		}
	}
	if p.Target <= 0 {
		bad("target ADU must be positive, got %g", p.Target)
	}
	if p.Tolerance <= 0 || p.Tolerance >= 1 {
		bad("tolerance must be between 0 and 1 exclusive, got %g", p.Tolerance)
	}
	if p.MinExposure < 0 {
		bad("minimum exposure must not be negative, got %g", p.MinExposure)
	}
	if p.MaxExposure <= 0 || p.MinExposure > p.MaxExposure {
		bad("exposure bounds [%g, %g] are not a valid range", p.MinExposure, p.MaxExposure)
	}
	if p.MaxRetries < 0 {
		bad("retry limit must not be negative, got %d", p.MaxRetries)
	}
	if p.Poll <= 0 {
		bad("poll interval must be positive, got %g", p.Poll)
	}
	if p.ExposureCeiling <= 0 || p.SlewCeiling <= 0 {
		bad("polling ceilings must be positive, got %g and %g", p.ExposureCeiling, p.SlewCeiling)
	}
	if p.Dither.Enabled {
		if p.Dither.Step <= 0 || p.Dither.Max <= 0 {
			bad("dither radii must be positive, got step %g max %g", p.Dither.Step, p.Dither.Max)
		}
		if p.Dither.Steps < 1 {
			bad("dither steps must be at least 1, got %d", p.Dither.Steps)
		}
	}
	return errors.Join(errs...)
}

// FrameSets builds the work items of the plan.  Exposures are the plan's
// starting values; remembered estimates are applied by the session.
func (p Plan) FrameSets() ([]*flat.FrameSet, error) {
	out := make([]*flat.FrameSet, 0, len(p.Sets))
	for i, s := range p.Sets {
		exp := s.Exposure
		if exp <= 0 {
			exp = p.MinExposure
		}
		fs, err := flat.NewFrameSet(flat.Filter{Slot: s.Slot, Name: s.Filter}, s.Binning, s.Count, util.Clamp(exp, p.MinExposure, p.MaxExposure))
		if err != nil {
			return nil, fmt.Errorf("set %d: %w", i, err)
		}
		out = append(out, fs)
	}
	return out, nil
}

// DitherRadians returns the dither step and maximum radius in radians
func (p Plan) DitherRadians() (step, max float64) {
	return mathx.ArcsecToRad(p.Dither.Step), mathx.ArcsecToRad(p.Dither.Max)
}

// PollInterval is Poll as a Duration
func (p Plan) PollInterval() time.Duration { return util.SecsToDuration(p.Poll) }

// ExposureTimeout is ExposureCeiling as a Duration
func (p Plan) ExposureTimeout() time.Duration { return util.SecsToDuration(p.ExposureCeiling) }

// SlewTimeout is SlewCeiling as a Duration
func (p Plan) SlewTimeout() time.Duration { return util.SecsToDuration(p.SlewCeiling) }
