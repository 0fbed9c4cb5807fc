/*Package acquire runs flat-field acquisition sessions.

A Session drives a camera and, optionally, a mount through four phases:

	1.  pre-session mount setup: home, point at the light source, stop
		tracking, and note the pointing dithers are centered on
	2.  download-time calibration: one bias frame per binning in use, timed,
		so later waits can be sized to the frame instead of guessed
	3.  per set: pick the filter, then expose, measure, accept or reject and
		refine the exposure until enough frames are in tolerance
	4.  teardown: warm the camera, park the mount

Run blocks until the session ends.  Cancel its context to stop it; any
exposure or slew in progress is aborted and the outcome is Cancelled, not an
error.  Everything the session has to say goes to its Reporter, ending with
exactly one report.Ended event.
*/
package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nasa-jpl/autoflat/camera"
	"github.com/nasa-jpl/autoflat/dither"
	"github.com/nasa-jpl/autoflat/flat"
	"github.com/nasa-jpl/autoflat/motion"
	"github.com/nasa-jpl/autoflat/report"
	"github.com/nasa-jpl/autoflat/skyx"
	"github.com/nasa-jpl/autoflat/util"
)

// SetResult is the final tally of one frame set
type SetResult struct {
	Label    string
	Done     int
	Wanted   int
	Exposure float64
}

// Result is what a session did
type Result struct {
	ID      string
	Outcome Outcome
	Sets    []SetResult
	Saved   []string
	Err     error
}

// Session is one run over a list of frame sets
type Session struct {
	// ID is unique to the session
	ID string

	Camera camera.Flat

	// Mount may be nil if no setting drives it
	Mount motion.Mount

	Sets     []*flat.FrameSet
	Store    flat.EstimateStore
	Settings Settings
	Reporter report.Reporter
	Clock    Clock

	mu    sync.Mutex
	state State
	ran   bool

	downloads flat.DownloadTimes
	dither    *dither.Generator
	exposing  bool
	slewing   bool
	saved     []string
}

// NewSession returns a session ready to Run, using the wall clock
func NewSession(cam camera.Flat, mount motion.Mount, sets []*flat.FrameSet, store flat.EstimateStore, s Settings, r report.Reporter) *Session {
	if store == nil {
		store = flat.MemStore{}
	}
	if r == nil {
		r = report.Discard
	}
	return &Session{
		ID:       uuid.NewString(),
		Camera:   cam,
		Mount:    mount,
		Sets:     sets,
		Store:    store,
		Settings: s,
		Reporter: r,
		Clock:    SystemClock}
}

// State returns the current state; it is safe to call while Run is going
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.emit(report.Event{Kind: report.StateChange, Text: st.String()})
}

func (s *Session) emit(e report.Event) {
	e.Time = s.Clock.Now()
	e.Session = s.ID
	s.Reporter.Report(e)
}

func (s *Session) logf(level report.Level, indent int, format string, args ...interface{}) {
	s.emit(report.Event{Kind: report.Log, Level: level, Indent: indent, Text: fmt.Sprintf(format, args...)})
}

func label(fs *flat.FrameSet) string {
	return fmt.Sprintf("%s %dx%d", fs.Filter(), fs.Binning(), fs.Binning())
}

// FrameName is the file name of the n-th accepted frame of a set, e.g.
// Flat-Lum-2x2-003.fit
func FrameName(fs *flat.FrameSet, n int) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, fs.Filter().String())
	return fmt.Sprintf("Flat-%s-%dx%d-%03d.fit", name, fs.Binning(), fs.Binning(), n)
}

// Run executes the session.  The error is nil for completed and cancelled
// sessions and the reason for failed ones.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return Result{ID: s.ID, Outcome: Failed, Err: ErrRunTwice}, ErrRunTwice
	}
	s.ran = true
	s.mu.Unlock()
	if s.Clock == nil {
		s.Clock = SystemClock
	}
	if s.Reporter == nil {
		s.Reporter = report.Discard
	}
	if s.Store == nil {
		s.Store = flat.MemStore{}
	}

	info := make([]report.SetInfo, len(s.Sets))
	for i, fs := range s.Sets {
		info[i] = report.SetInfo{Label: label(fs), Wanted: fs.Wanted}
	}
	s.emit(report.Event{Kind: report.Began, Sets: info})
	s.logf(report.Info, 0, "Session %s: %d frame sets", s.ID, len(s.Sets))

	err := s.run(ctx)

	res := Result{ID: s.ID, Saved: append([]string(nil), s.saved...)}
	for _, fs := range s.Sets {
		res.Sets = append(res.Sets, SetResult{Label: label(fs), Done: fs.Done, Wanted: fs.Wanted, Exposure: fs.Exposure})
	}
	switch {
	case err == nil:
		res.Outcome = Completed
		s.logf(report.Notice, 0, "Flat acquisition complete, %d frames saved", len(s.saved))
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		res.Outcome = Cancelled
		s.setState(Cancelling)
		s.abortInFlight()
		s.logf(report.Warn, 0, "Flat acquisition cancelled")
		err = nil
	default:
		res.Outcome = Failed
		res.Err = err
		s.setState(Aborted)
		s.abortInFlight()
		var te TimeoutError
		var ce ConvergenceError
		switch {
		case errors.As(err, &te):
			s.logf(report.Error, 0, "Timed out: %v", err)
		case errors.As(err, &ce):
			s.logf(report.Error, 0, "Could not converge: %v", err)
		default:
			s.logf(report.Error, 0, "Error: %v", err)
		}
	}
	s.setState(Ended)
	s.emit(report.Event{Kind: report.Ended, Text: res.Outcome.String(), Err: res.Err})
	return res, err
}

// abortInFlight stops an exposure or slew left running.  Errors are ignored,
// the session is already over.
func (s *Session) abortInFlight() {
	if s.exposing {
		s.Camera.AbortExposure()
		s.exposing = false
	}
	if s.slewing && s.Mount != nil {
		s.Mount.AbortSlew()
		s.slewing = false
	}
}

func (s *Session) run(ctx context.Context) error {
	if s.Camera == nil {
		return errors.New("no camera")
	}
	if s.Mount == nil && s.Settings.needsMount() {
		return ErrNoMount
	}
	if s.Settings.Target <= 0 {
		return fmt.Errorf("target ADU must be positive, got %g", s.Settings.Target)
	}
	if err := s.preSetup(ctx); err != nil {
		return err
	}
	if err := s.calibrate(ctx); err != nil {
		return err
	}
	for i, fs := range s.Sets {
		if err := s.acquireSet(ctx, i, fs); err != nil {
			return err
		}
		if err := s.recenter(ctx); err != nil {
			return err
		}
	}
	return s.teardown(ctx)
}

func (s *Session) preSetup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setState(PreSetup)
	st := s.Settings
	if st.Home {
		s.logf(report.Info, 0, "Homing mount")
		if err := s.Mount.Home(); err != nil {
			return fmt.Errorf("homing: %w", err)
		}
	}
	if st.SlewToLight {
		s.logf(report.Info, 0, "Slewing to light source at alt %.2f az %.2f", st.LightAlt, st.LightAz)
		if err := s.slew(ctx, st.LightAlt, st.LightAz); err != nil {
			return err
		}
	}
	if st.TrackingOff {
		s.logf(report.Info, 0, "Turning tracking off")
		if err := s.Mount.SetTracking(false); err != nil {
			return fmt.Errorf("tracking off: %w", err)
		}
	}
	if st.Dither {
		alt, az, err := s.Mount.AltAz()
		if err != nil {
			return fmt.Errorf("reading pointing: %w", err)
		}
		g, err := dither.NewWithSteps(dither.Point{Alt: alt, Az: az}, st.DitherStep, st.DitherMax, st.DitherSteps)
		if err != nil {
			return err
		}
		s.dither = g
		s.logf(report.Info, 0, "Dithering about alt %.4f az %.4f", alt, az)
	}
	return nil
}

// calibrate times one bias frame at each binning in use
func (s *Session) calibrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setState(Calibrating)
	s.logf(report.Info, 0, "Connecting camera")
	if err := s.Camera.ConnectCamera(); err != nil {
		return fmt.Errorf("connecting camera: %w", err)
	}
	s.downloads = flat.DownloadTimes{}
	binnings := util.UniqueInts(flat.Binnings(s.Sets))
	s.logf(report.Info, 0, "Timing downloads at binning %s", util.IntSliceToCSV(binnings))
	for _, b := range binnings {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := s.Clock.Now()
		err := s.Camera.StartExposure(skyx.Exposure{Type: skyx.Bias, Binning: b})
		if err != nil {
			return fmt.Errorf("bias frame at binning %d: %w", b, err)
		}
		s.downloads[b] = s.Clock.Now().Sub(start)
		s.logf(report.Info, 1, "Download time at %dx%d is %.2fs", b, b, s.downloads[b].Seconds())
	}
	return nil
}

func (s *Session) acquireSet(ctx context.Context, i int, fs *flat.FrameSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setState(Acquiring)
	s.emit(report.Event{Kind: report.Highlight, Set: i})
	lbl := label(fs)
	if fs.Complete() {
		s.logf(report.Info, 0, "%s: nothing to do", lbl)
		return nil
	}
	s.logf(report.Info, 0, "%s: acquiring %d frames", lbl, fs.Remaining())
	if err := s.Camera.SelectFilter(fs.Filter().Slot); err != nil {
		return fmt.Errorf("selecting filter %s: %w", fs.Filter(), err)
	}
	st := s.Settings
	key := fs.Key()
	if est, ok := s.Store.Estimate(key); ok && est > 0 {
		fs.Exposure = est
	}
	fs.Exposure = util.Clamp(fs.Exposure, st.MinExposure, st.MaxExposure)

	s.emit(report.Event{Kind: report.ProgressStart, Set: i, Text: lbl, Value: fs.Done, Total: fs.Wanted})
	defer s.emit(report.Event{Kind: report.ProgressStop, Set: i})

	rejections := 0
	newFrame := true
	for !fs.Complete() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if newFrame && s.dither != nil {
			p, move := s.dither.Next()
			if move {
				s.logf(report.Info, 1, "Dither to alt %.4f az %.4f", p.Alt, p.Az)
				if err := s.slew(ctx, p.Alt, p.Az); err != nil {
					return err
				}
				if st.TrackingOff {
					if err := s.Mount.SetTracking(false); err != nil {
						return fmt.Errorf("tracking off: %w", err)
					}
				}
			}
		}
		newFrame = false

		exposure := fs.Exposure
		adu, err := s.expose(ctx, fs)
		if err != nil {
			return err
		}
		accepted := flat.InTolerance(adu, st.Target, st.Tolerance)
		s.emit(report.Event{Kind: report.Frame, Set: i, Exposure: exposure, ADU: adu, Accepted: accepted})
		if accepted {
			fs.Done++
			if err := s.Store.SetEstimate(key, exposure); err != nil {
				s.logf(report.Warn, 1, "Could not remember exposure for %s: %v", key, err)
			}
			path, err := s.Camera.SaveImage(st.SaveDir, FrameName(fs, fs.Done))
			if err != nil {
				return fmt.Errorf("saving frame: %w", err)
			}
			s.saved = append(s.saved, path)
			s.logf(report.Notice, 1, "Frame %d of %d: %.0f ADU at %.3fs, saved %s", fs.Done, fs.Wanted, adu, exposure, path)
			s.emit(report.Event{Kind: report.ProgressUpdate, Set: i, Value: fs.Done, Total: fs.Wanted})
			rejections = 0
			newFrame = true
		} else {
			rejections++
			s.logf(report.Warn, 1, "Rejected %.0f ADU at %.3fs (%d of %d retries)", adu, exposure, rejections, st.MaxRetries)
			if rejections > st.MaxRetries {
				return ConvergenceError{Set: lbl, Rejections: rejections, LastADU: adu, Target: st.Target}
			}
		}
		fs.Exposure = flat.Refine(exposure, adu, st.Target, st.MinExposure, st.MaxExposure)
		if fs.Exposure != exposure {
			s.logf(report.Info, 2, "Next exposure %.3fs", fs.Exposure)
		}
	}
	return nil
}

// expose takes one flat at the set's exposure and returns its mean ADU
func (s *Session) expose(ctx context.Context, fs *flat.FrameSet) (float64, error) {
	wait, err := s.downloads.Wait(fs.Binning(), util.SecsToDuration(fs.Exposure))
	if err != nil {
		return 0, err
	}
	err = s.Camera.StartExposure(skyx.Exposure{Type: skyx.Flat, Binning: fs.Binning(), Seconds: fs.Exposure, Async: true})
	if err != nil {
		return 0, fmt.Errorf("starting exposure: %w", err)
	}
	s.exposing = true
	if err := s.Clock.Sleep(ctx, wait); err != nil {
		return 0, err
	}
	if err := s.poll(ctx, "exposure", s.Settings.ExposureCeiling, s.Camera.IsExposureComplete); err != nil {
		return 0, err
	}
	s.exposing = false
	adu, err := s.Camera.AverageADU()
	if err != nil {
		return 0, fmt.Errorf("reading ADU: %w", err)
	}
	return adu, nil
}

// slew moves the mount asynchronously and waits for it to arrive
func (s *Session) slew(ctx context.Context, alt, az float64) error {
	if err := s.Mount.SlewAltAz(alt, az, true); err != nil {
		return fmt.Errorf("slewing: %w", err)
	}
	s.slewing = true
	if err := s.poll(ctx, "slew", s.Settings.SlewCeiling, s.Mount.IsSlewComplete); err != nil {
		return err
	}
	s.slewing = false
	return nil
}

// poll calls done every poll interval until it is true, failing with a
// TimeoutError once ceiling has passed
func (s *Session) poll(ctx context.Context, op string, ceiling time.Duration, done func() (bool, error)) error {
	start := s.Clock.Now()
	for {
		ok, err := done()
		if err != nil {
			return fmt.Errorf("polling %s: %w", op, err)
		}
		if ok {
			return nil
		}
		if s.Clock.Now().Sub(start) > ceiling {
			return TimeoutError{Op: op, After: ceiling}
		}
		if err := s.Clock.Sleep(ctx, s.Settings.Poll); err != nil {
			return err
		}
	}
}

// recenter returns the mount to the dither center and rearms the generator
func (s *Session) recenter(ctx context.Context) error {
	if s.dither == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setState(Centering)
	c := s.dither.Center()
	s.logf(report.Info, 0, "Recentering")
	if err := s.slew(ctx, c.Alt, c.Az); err != nil {
		return err
	}
	if s.Settings.TrackingOff {
		if err := s.Mount.SetTracking(false); err != nil {
			return fmt.Errorf("tracking off: %w", err)
		}
	}
	s.dither.Reset()
	return nil
}

func (s *Session) teardown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setState(Teardown)
	if s.Settings.WarmUp {
		s.logf(report.Info, 0, "Warming up camera")
		if err := s.Camera.SetCooling(false, 0); err != nil {
			return fmt.Errorf("warm up: %w", err)
		}
	}
	if s.Settings.Park {
		s.logf(report.Info, 0, "Parking mount")
		if err := s.Mount.Park(); err != nil {
			return fmt.Errorf("parking: %w", err)
		}
	}
	return nil
}
