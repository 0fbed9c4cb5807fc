package skyx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"
)

func ExampleClient_AltAz() {
	m := NewMock(nil)
	m.SetPointing(60, 90)
	c := NewClientWithExchanger(m.Exchanger())
	alt, az, err := c.AltAz()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(alt, az)
	// Output: 60 90
}

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want Code
	}{
		{"|Process aborted. Error = 206.", CodeAborted},
		{"|Error saving image. Error = 110.", CodeSave},
		{"|Unable to save /x.fit. Error = 110.", CodeSave},
		{"|TypeError: Camera not connected. Error = 200.", CodeFailure},
		{"|ReferenceError: Can't find variable: foo. Error = 1.", CodeFailure},
		{"|SyntaxError: Parse error. Error = 1.", CodeFailure},
		{"|Something else. Error = 42.", CodeFailure},
	}
	for _, c := range cases {
		err := classify(c.line)
		var re RemoteError
		if !errors.As(err, &re) {
			t.Errorf("%q: expected RemoteError, got %v", c.line, err)
			continue
		}
		if re.Code != c.want {
			t.Errorf("%q: expected code %v got %v", c.line, c.want, re.Code)
		}
		if !errors.Is(err, ErrRemote) {
			t.Errorf("%q: should match ErrRemote", c.line)
		}
	}
}

func TestClassifyClean(t *testing.T) {
	for _, line := range []string{"1|No error. Error = 0.", "0", "12.5/180|No error. Error = 0."} {
		if err := classify(line); err != nil {
			t.Errorf("%q: expected no error, got %v", line, err)
		}
	}
}

func TestRemoteErrorIs(t *testing.T) {
	err := classify("|Process aborted. Error = 206.")
	if !errors.Is(err, ErrAborted) {
		t.Error("aborted reply should match ErrAborted")
	}
	if errors.Is(err, ErrSave) {
		t.Error("aborted reply should not match ErrSave")
	}
	var re RemoteError
	errors.As(err, &re)
	if re.Num != 206 {
		t.Errorf("expected error number 206, got %d", re.Num)
	}
}

func TestJSLiterals(t *testing.T) {
	if jsBool(true) != "true" || jsBool(false) != "false" {
		t.Error("jsBool")
	}
	if got := jsString(`C:\flats\it's.fit`); got != `'C:\\flats\\it\'s.fit'` {
		t.Errorf("jsString produced %s", got)
	}
	if got := jsNum(2.5); got != "2.5" {
		t.Errorf("jsNum produced %s", got)
	}
	if got := jsNum(10); got != "10" {
		t.Errorf("jsNum produced %s", got)
	}
}

func TestParsePair(t *testing.T) {
	a, b, err := parsePair("45.5/180.25")
	if err != nil {
		t.Fatal(err)
	}
	if a != 45.5 || b != 180.25 {
		t.Errorf("expected 45.5, 180.25 got %f, %f", a, b)
	}
	for _, bad := range []string{"45.5", "a/b", "1/2/3"} {
		if _, _, err := parsePair(bad); !errors.Is(err, ErrBadReply) {
			t.Errorf("%q: expected ErrBadReply, got %v", bad, err)
		}
	}
}

func newMockClient() (*Mock, *Client) {
	m := NewMock(&LinearADUModel{Fits: DefaultFits})
	m.Instant = true
	return m, NewClientWithExchanger(m.Exchanger())
}

func TestStartExposureScript(t *testing.T) {
	m, c := newMockClient()
	if err := c.ConnectCamera(); err != nil {
		t.Fatal(err)
	}
	err := c.StartExposure(Exposure{Type: Flat, Binning: 2, Seconds: 1.5, Async: true})
	if err != nil {
		t.Fatal(err)
	}
	reqs := m.Requests()
	script := reqs[len(reqs)-1]
	for _, want := range []string{
		"ccdsoftCamera.Asynchronous=true;",
		"ccdsoftCamera.Frame=4;",
		"ccdsoftCamera.AutoSaveOn=false;",
		"ccdsoftCamera.BinX=2;",
		"ccdsoftCamera.BinY=2;",
		"ccdsoftCamera.ExposureTime=1.5;",
		"ccdsoftCamera.TakeImage();",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script lacks %q:\n%s", want, script)
		}
	}
	s := m.Snapshot()
	if s.Binning != 2 || s.Seconds != 1.5 {
		t.Errorf("mock camera at binning %d, %f s", s.Binning, s.Seconds)
	}
}

func TestBiasIgnoresSeconds(t *testing.T) {
	m, c := newMockClient()
	c.ConnectCamera()
	if err := c.StartExposure(Exposure{Type: Bias, Binning: 1, Seconds: 30}); err != nil {
		t.Fatal(err)
	}
	reqs := m.Requests()
	if !strings.Contains(reqs[len(reqs)-1], "ccdsoftCamera.ExposureTime=0;") {
		t.Errorf("bias exposure should have zero length:\n%s", reqs[len(reqs)-1])
	}
}

func TestStartExposureNotConnected(t *testing.T) {
	_, c := newMockClient()
	err := c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 1})
	if !errors.Is(err, ErrRemote) {
		t.Errorf("expected a remote error from a disconnected camera, got %v", err)
	}
}

func TestStartExposureBadBinning(t *testing.T) {
	_, c := newMockClient()
	if err := c.StartExposure(Exposure{Type: Flat, Binning: 0}); err == nil {
		t.Error("binning 0 should be refused")
	}
}

func TestExposureCompletion(t *testing.T) {
	_, c := newMockClient()
	c.ConnectCamera()
	c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 1, Async: true})
	done, err := c.IsExposureComplete()
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("instant mock should complete immediately")
	}
}

func TestAverageADUFromServer(t *testing.T) {
	m, c := newMockClient()
	c.ConnectCamera()
	if err := c.SelectFilter(1); err != nil {
		t.Fatal(err)
	}
	if err := c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 10}); err != nil {
		t.Fatal(err)
	}
	adu, err := c.AverageADU()
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultFits[FitKey{1, 1}].Slope*10 + DefaultFits[FitKey{1, 1}].Intercept
	if adu != want {
		t.Errorf("expected %f got %f", want, adu)
	}
	if m.Snapshot().Slot != 1 {
		t.Errorf("mock wheel should be in slot 1")
	}
}

func TestAverageADUFromSimulator(t *testing.T) {
	_, c := newMockClient()
	c.Simulator = &LinearADUModel{Fits: map[FitKey]Fit{{1, 2}: {Slope: 100, Intercept: 0}}}
	c.ConnectCamera()
	c.SelectFilter(2)
	c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 3})
	adu, err := c.AverageADU()
	if err != nil {
		t.Fatal(err)
	}
	if adu != 300 {
		t.Errorf("expected 300 from the simulator, got %f", adu)
	}
}

func TestSelectFilterZeroBased(t *testing.T) {
	m, c := newMockClient()
	if err := c.SelectFilter(3); err != nil {
		t.Fatal(err)
	}
	reqs := m.Requests()
	if !strings.Contains(reqs[len(reqs)-1], "FilterIndexZeroBased=2;") {
		t.Errorf("slot 3 should be index 2:\n%s", reqs[len(reqs)-1])
	}
	if err := c.SelectFilter(0); err == nil {
		t.Error("slot 0 should be refused")
	}
}

func TestSaveImage(t *testing.T) {
	m, c := newMockClient()
	dir := t.TempDir()
	c.ConnectCamera()
	c.StartExposure(Exposure{Type: Flat, Binning: 2, Seconds: 2})
	path, err := c.SaveImage(dir, "Flat-Lum-2x2-001.fit")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "Flat-Lum-2x2-001.fit") {
		t.Errorf("unexpected path %s", path)
	}
	if diff := cmp.Diff([]string{path}, m.Snapshot().Saved); diff != "" {
		t.Errorf("saved files (-want +got):\n%s", diff)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fits, err := fitsio.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	defer fits.Close()
	hdr := fits.HDU(0).Header()
	if card := hdr.Get("IMAGETYP"); card == nil || strings.TrimSpace(fmt.Sprint(card.Value)) != "Flat Field" {
		t.Errorf("IMAGETYP card is %v", card)
	}
}

func TestSaveImageAutosave(t *testing.T) {
	m, c := newMockClient()
	m.Dir = t.TempDir()
	c.ConnectCamera()
	c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 2})
	path, err := c.SaveImage("", "a.fit")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(m.Dir, "a.fit") {
		t.Errorf("unexpected path %s", path)
	}
}

func TestSaveImageNoAutosaveFolder(t *testing.T) {
	_, c := newMockClient()
	c.ConnectCamera()
	c.StartExposure(Exposure{Type: Flat, Binning: 1, Seconds: 2})
	_, err := c.SaveImage("", "a.fit")
	if !errors.Is(err, ErrSave) {
		t.Errorf("expected ErrSave, got %v", err)
	}
}

func TestMountScripts(t *testing.T) {
	m, c := newMockClient()
	if err := c.SlewAltAz(30, 120, true); err != nil {
		t.Fatal(err)
	}
	reqs := m.Requests()
	if !strings.Contains(reqs[len(reqs)-1], "SlewToAzAlt(120,30,'');") {
		t.Errorf("azimuth comes first in SlewToAzAlt:\n%s", reqs[len(reqs)-1])
	}
	done, err := c.IsSlewComplete()
	if err != nil || !done {
		t.Errorf("instant slew should be complete: %v %v", done, err)
	}
	if err := c.SetTracking(false); err != nil {
		t.Fatal(err)
	}
	tracking, err := c.Tracking()
	if err != nil {
		t.Fatal(err)
	}
	if tracking {
		t.Error("tracking should be off")
	}
	if err := c.SlewAltAz(31, 121, false); err != nil {
		t.Fatal(err)
	}
	if tracking, _ = c.Tracking(); !tracking {
		t.Error("slewing should turn tracking back on")
	}
	if err := c.Park(); err != nil {
		t.Fatal(err)
	}
	s := m.Snapshot()
	if !s.Parked || s.Tracking || s.Slews != 2 {
		t.Errorf("unexpected mount state after park: %+v", s)
	}
}

func TestInjectedAbort(t *testing.T) {
	m, c := newMockClient()
	m.FailNext("|Process aborted. Error = 206.")
	_, err := c.IsExposureComplete()
	if !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
	if _, err := c.IsExposureComplete(); err != nil {
		t.Errorf("injected failure should apply once, got %v", err)
	}
}

func TestUnknownStatement(t *testing.T) {
	_, c := newMockClient()
	_, err := c.Raw("ccdsoftCamera.Explode();\n")
	if !errors.Is(err, ErrRemote) {
		t.Errorf("expected a remote error, got %v", err)
	}
}

func TestLinearModelClamps(t *testing.T) {
	m := &LinearADUModel{Fits: DefaultFits}
	if adu := m.Estimate(1e6, 1, 1); adu != MaxADU {
		t.Errorf("expected saturation at %d, got %f", MaxADU, adu)
	}
}

func TestLinearModelBinningFallback(t *testing.T) {
	m := &LinearADUModel{Fits: map[FitKey]Fit{{1, 0}: {Slope: 100, Intercept: 0}}}
	if adu := m.Estimate(1, 3, 4); adu != 900 {
		t.Errorf("binning 3 should scale slope by 9, got %f", adu)
	}
}

func TestLinearModelDeterministic(t *testing.T) {
	a, b := NewLinearADUModel(7), NewLinearADUModel(7)
	for i := 0; i < 5; i++ {
		if x, y := a.Estimate(2, 1, 1), b.Estimate(2, 1, 1); x != y {
			t.Fatalf("same seed gave %f and %f", x, y)
		}
	}
}
