package skyx

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nasa-jpl/autoflat/comm"
)

// Mock is an in-process stand-in for a TheSkyX server with a camera, filter
// wheel and mount attached.  It understands the statements Client sends and
// nothing else; anything it does not recognize is answered with a
// ReferenceError, as the real server would.
//
// Use NewMock to create one; the zero value is not usable.
type Mock struct {
	// Model produces the average ADU of each frame
	Model ADUModel

	// Dir is the autosave folder.  Saved frames are written as FITS files.
	Dir string

	// Instant completes exposures and slews as soon as they start
	Instant bool

	// Download returns the readout time for a binning
	Download func(binning int) time.Duration

	// SlewTime is the duration of every slew
	SlewTime time.Duration

	mu       sync.Mutex
	now      func() time.Time
	cam      mockCamera
	tele     mockMount
	failNext []string
	requests []string
}

type mockCamera struct {
	connected bool
	async     bool
	autosave  bool
	regulate  bool
	setpoint  float64
	frame     FrameType
	binning   int
	slot      int
	seconds   float64
	exposing  bool
	doneAt    time.Time
	haveImage bool
	adu       float64
	path      string
	saved     []string
}

type mockMount struct {
	async    bool
	tracking bool
	slewing  bool
	parked   bool
	homed    bool
	alt, az  float64
	doneAt   time.Time
	slews    int
}

// MockState is a snapshot of the simulated hardware
type MockState struct {
	CameraConnected bool
	Exposing        bool
	Regulating      bool
	Slot            int
	Binning         int
	Seconds         float64
	Saved           []string

	Alt, Az  float64
	Tracking bool
	Slewing  bool
	Parked   bool
	Homed    bool
	Slews    int
}

// NewMock returns a Mock whose frames are estimated by model, with a camera
// that takes a second per binning level to read out and a mount that takes
// two seconds per slew
func NewMock(model ADUModel) *Mock {
	return &Mock{
		Model:    model,
		Download: func(b int) time.Duration { return time.Second / time.Duration(b) },
		SlewTime: 2 * time.Second,
		now:      time.Now,
		cam:      mockCamera{binning: 1, slot: 1, frame: Light},
		tele:     mockMount{alt: 45, az: 180, tracking: true}}
}

// Exchanger returns an in-memory Exchanger connected to the mock
func (m *Mock) Exchanger() comm.Exchanger {
	return comm.OneShot{Maker: comm.PipeMaker(EndMarker, comm.Newline, m.Handle), Timeout: time.Minute}
}

// Serve answers TCP connections on ln until it is closed
func (m *Mock) Serve(ln net.Listener) error {
	return comm.Serve(ln, EndMarker, comm.Newline, m.Handle)
}

// ListenAndServe listens on addr and serves the mock there
func (m *Mock) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	return m.Serve(ln)
}

// FailNext makes the next reply the given line, whatever the request
func (m *Mock) FailNext(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, line)
}

// Requests returns the script bodies received so far
func (m *Mock) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Snapshot returns the current state of the simulated hardware
func (m *Mock) Snapshot() MockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.update()
	return MockState{
		CameraConnected: m.cam.connected,
		Exposing:        m.cam.exposing,
		Regulating:      m.cam.regulate,
		Slot:            m.cam.slot,
		Binning:         m.cam.binning,
		Seconds:         m.cam.seconds,
		Saved:           append([]string(nil), m.cam.saved...),
		Alt:             m.tele.alt,
		Az:              m.tele.az,
		Tracking:        m.tele.tracking,
		Slewing:         m.tele.slewing,
		Parked:          m.tele.parked,
		Homed:           m.tele.homed,
		Slews:           m.tele.slews}
}

// SetPointing places the simulated mount at alt, az
func (m *Mock) SetPointing(alt, az float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tele.alt, m.tele.az = alt, az
}

// update retires exposures and slews whose time has come
func (m *Mock) update() {
	now := m.now()
	if m.cam.exposing && !now.Before(m.cam.doneAt) {
		m.cam.exposing = false
	}
	if m.tele.slewing && !now.Before(m.tele.doneAt) {
		m.tele.slewing = false
	}
}

type mockErr string

func (e mockErr) Error() string { return string(e) }

const (
	errNotConnected = mockErr("TypeError: Camera not connected. Error = 200.")
	errNoImage      = mockErr("TypeError: No active image. Error = 212.")
	errNoAutosave   = mockErr("Error saving image, no autosave folder. Error = 110.")
)

var (
	propRE    = regexp.MustCompile(`^(ccdsoftCamera|sky6RASCOMTele)\.(\w+)=(.+);$`)
	slewRE    = regexp.MustCompile(`^sky6RASCOMTele\.SlewToAzAlt\(([-0-9.eE+]+),([-0-9.eE+]+),''\);$`)
	trackRE   = regexp.MustCompile(`^sky6RASCOMTele\.SetTracking\((true|false),(true|false),0,0\);$`)
	imgPathRE = regexp.MustCompile(`^ccdsoftCameraImage\.Path=(.+);$`)
)

// Handle answers one request; it satisfies comm.Handler
func (m *Mock) Handle(req []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := string(req)
	if idx := strings.Index(body, "Socket Start Packet */"); idx >= 0 {
		body = body[idx+len("Socket Start Packet */"):]
	}
	if idx := strings.Index(body, "/* Socket End Packet"); idx >= 0 {
		body = body[:idx]
	}
	body = strings.TrimSpace(body)
	m.requests = append(m.requests, body)
	if len(m.failNext) > 0 {
		line := m.failNext[0]
		m.failNext = m.failNext[1:]
		return []byte(line)
	}
	m.update()
	out := ""
	for _, stmt := range strings.Split(body, "\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || stmt == "var Out;" {
			continue
		}
		v, isOut, err := m.exec(stmt)
		if err != nil {
			return []byte("|" + err.Error())
		}
		if isOut {
			out = v
		}
	}
	return []byte(out + "|No error. Error = 0.")
}

// exec runs one statement.  isOut is true when the statement assigns Out.
func (m *Mock) exec(stmt string) (out string, isOut bool, err error) {
	switch stmt {
	case "Out=0;", "Out=cameraResult;":
		return "0", true, nil
	case "ccdsoftCamera.Connect();":
		m.cam.connected = true
		return "", false, nil
	case "ccdsoftCamera.Disconnect();":
		m.cam.connected = false
		return "", false, nil
	case "ccdsoftCamera.filterWheelConnect();":
		return "", false, nil
	case "ccdsoftCamera.Abort();":
		m.cam.exposing = false
		return "", false, nil
	case "var cameraResult=ccdsoftCamera.TakeImage();":
		return "", false, m.takeImage()
	case "Out=ccdsoftCamera.IsExposureComplete;":
		return boolOut(!m.cam.exposing), true, nil
	case "ccdsoftCameraImage.AttachToActive();":
		if !m.cam.haveImage {
			return "", false, errNoImage
		}
		return "", false, nil
	case "Out=ccdsoftCameraImage.averagePixelValue();":
		return strconv.FormatFloat(m.cam.adu, 'f', 3, 64), true, nil
	case "var saveResult=ccdsoftCameraImage.Save();":
		return "", false, m.save()
	case "Out=ccdsoftCameraImage.Path;":
		return m.cam.path, true, nil
	case "sky6RASCOMTele.Connect();", "sky6RASCOMTele.GetAzAlt();":
		return "", false, nil
	case "sky6RASCOMTele.FindHome();":
		m.tele = mockMount{homed: true, alt: 0, az: 0, tracking: false, async: m.tele.async, slews: m.tele.slews}
		return "", false, nil
	case "sky6RASCOMTele.Park();":
		m.tele.parked = true
		m.tele.tracking = false
		m.tele.slewing = false
		return "", false, nil
	case "Out=sky6RASCOMTele.IsSlewComplete;":
		return boolOut(!m.tele.slewing), true, nil
	case "sky6RASCOMTele.Abort();":
		m.tele.slewing = false
		return "", false, nil
	case "Out=sky6RASCOMTele.IsTracking;":
		return boolOut(m.tele.tracking), true, nil
	case "Out=sky6RASCOMTele.dAlt+'/'+sky6RASCOMTele.dAz;":
		return fmt.Sprintf("%s/%s", jsNum(m.tele.alt), jsNum(m.tele.az)), true, nil
	}
	if g := slewRE.FindStringSubmatch(stmt); g != nil {
		az, _ := strconv.ParseFloat(g[1], 64)
		alt, _ := strconv.ParseFloat(g[2], 64)
		m.slew(alt, az)
		return "", false, nil
	}
	if g := trackRE.FindStringSubmatch(stmt); g != nil {
		m.tele.tracking = g[1] == "true"
		return "", false, nil
	}
	if g := imgPathRE.FindStringSubmatch(stmt); g != nil {
		return "", false, m.setPath(g[1])
	}
	if g := propRE.FindStringSubmatch(stmt); g != nil {
		return "", false, m.setProp(g[1], g[2], g[3])
	}
	return "", false, mockErr(fmt.Sprintf("ReferenceError: cannot evaluate %q. Error = 1.", stmt))
}

func boolOut(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (m *Mock) setProp(obj, name, val string) error {
	b := val == "true"
	f, _ := strconv.ParseFloat(val, 64)
	if obj == "sky6RASCOMTele" {
		if name == "Asynchronous" {
			m.tele.async = b
		}
		return nil
	}
	switch name {
	case "Asynchronous":
		m.cam.async = b
	case "AutoSaveOn":
		m.cam.autosave = b
	case "Frame":
		m.cam.frame = FrameType(int(f))
	case "BinX", "BinY":
		m.cam.binning = int(f)
	case "ExposureTime":
		m.cam.seconds = f
	case "FilterIndexZeroBased":
		m.cam.slot = int(f) + 1
	case "RegulateTemperature":
		m.cam.regulate = b
	case "TemperatureSetPoint":
		m.cam.setpoint = f
	}
	return nil
}

func (m *Mock) takeImage() error {
	if !m.cam.connected {
		return errNotConnected
	}
	secs := m.cam.seconds
	if m.cam.frame == Bias {
		secs = 0
	}
	wait := time.Duration(secs*float64(time.Second)) + m.Download(m.cam.binning)
	if m.Model != nil {
		m.cam.adu = m.Model.Estimate(secs, m.cam.binning, m.cam.slot)
	}
	m.cam.haveImage = true
	m.cam.path = ""
	if m.Instant {
		return nil
	}
	if !m.cam.async {
		// the real server holds the reply until the frame is downloaded
		time.Sleep(wait)
		return nil
	}
	m.cam.exposing = true
	m.cam.doneAt = m.now().Add(wait)
	return nil
}

func (m *Mock) slew(alt, az float64) {
	m.tele.alt, m.tele.az = alt, az
	m.tele.tracking = true
	m.tele.parked = false
	m.tele.slews++
	if m.Instant || !m.tele.async {
		return
	}
	m.tele.slewing = true
	m.tele.doneAt = m.now().Add(m.SlewTime)
}

// setPath understands the two forms Client.SaveImage produces: a quoted
// literal, or the autosave folder plus a quoted file name
func (m *Mock) setPath(expr string) error {
	const autosave = "ccdsoftCamera.AutoSavePath+'/'+"
	if strings.HasPrefix(expr, autosave) {
		if m.Dir == "" {
			return errNoAutosave
		}
		m.cam.path = filepath.Join(m.Dir, unquote(strings.TrimPrefix(expr, autosave)))
		return nil
	}
	m.cam.path = unquote(expr)
	return nil
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

func (m *Mock) save() error {
	if m.cam.path == "" {
		return mockErr("Error saving image, no path. Error = 110.")
	}
	f, err := os.Create(m.cam.path)
	if err != nil {
		return mockErr(fmt.Sprintf("Unable to save %s. Error = 110.", m.cam.path))
	}
	defer f.Close()
	meta := FrameMeta{
		Type:     m.cam.frame,
		Seconds:  m.cam.seconds,
		Binning:  m.cam.binning,
		Filter:   "slot-" + strconv.Itoa(m.cam.slot),
		Alt:      m.tele.alt,
		Az:       m.tele.az,
		Software: "autoflat skyx mock"}
	size := 64 / m.cam.binning
	if size < 1 {
		size = 1
	}
	if err := WriteUniformFits(f, meta, size, size, m.cam.adu); err != nil {
		return mockErr(fmt.Sprintf("Unable to save %s: %v. Error = 110.", m.cam.path, err))
	}
	m.cam.saved = append(m.cam.saved, m.cam.path)
	return nil
}
