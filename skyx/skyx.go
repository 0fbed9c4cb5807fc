/*Package skyx provides a client for the TheSkyX TCP scripting server, driving
the camera, filter wheel and mount attached to it.

TheSkyX accepts small JavaScript programs over TCP.  Each program is wrapped in
start and end marker comments and the server replies with one line: the value
of the variable Out, then a '|', then an error description such as
"No error. Error = 0.".  The server does not tolerate a socket held open
between commands, so every call opens a fresh connection.

Errors are reported in-band.  The reply to a failed program still arrives on a
healthy socket, so every reply is scanned for the known error texts before it
is parsed; see RemoteError.
*/
package skyx

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nasa-jpl/autoflat/comm"
	"golang.org/x/time/rate"
)

const (
	// DefaultPort is the port TheSkyX's TCP server listens on
	DefaultPort = 3040

	// DefaultResponseTimeout bounds one exchange.  Homing and synchronous
	// exposures hold the reply until they finish, so it is generous.
	DefaultResponseTimeout = 5 * time.Minute

	scriptHeader = "/* Java Script */\n/* Socket Start Packet */\n"
	scriptFooter = "/* Socket End Packet */\n"
)

// EndMarker terminates every request sent to the server
var EndMarker = []byte(scriptFooter)

// Code is the severity of an error reported by the server
type Code int

const (
	// CodeFailure is any error not covered by a more specific code
	CodeFailure Code = iota + 1

	// CodeAborted is reported when a running exposure or slew was aborted
	CodeAborted

	// CodeSave is reported when an image could not be saved
	CodeSave
)

func (c Code) String() string {
	switch c {
	case CodeAborted:
		return "operation aborted"
	case CodeSave:
		return "save failed"
	default:
		return "remote error"
	}
}

var (
	// ErrRemote matches any RemoteError with errors.Is
	ErrRemote = errors.New("skyx: remote error")

	// ErrAborted matches a RemoteError with CodeAborted
	ErrAborted = errors.New("skyx: operation aborted")

	// ErrSave matches a RemoteError with CodeSave
	ErrSave = errors.New("skyx: save failed")

	// ErrBadReply is generated when a reply can not be parsed as the expected type
	ErrBadReply = errors.New("skyx: unexpected reply")
)

// RemoteError is an error reported in-band by the server
type RemoteError struct {
	Code Code

	// Num is the numeric error from "Error = N", zero if there was none
	Num int

	// Line is the full reply
	Line string
}

// Error implements the error interface
func (e RemoteError) Error() string {
	return fmt.Sprintf("skyx: %s: %s", e.Code, e.Line)
}

// Is makes RemoteError match ErrRemote, and ErrAborted or ErrSave by code
func (e RemoteError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrAborted:
		return e.Code == CodeAborted
	case ErrSave:
		return e.Code == CodeSave
	}
	return false
}

// sentinels are checked in order, so the more specific texts come first
var sentinels = []struct {
	text string
	code Code
}{
	{"Process aborted", CodeAborted},
	{"Error saving", CodeSave},
	{"Unable to save", CodeSave},
	{"TypeError", CodeFailure},
	{"ReferenceError", CodeFailure},
	{"SyntaxError", CodeFailure},
}

var errNumRE = regexp.MustCompile(`Error = (-?\d+)`)

// classify returns a RemoteError if line carries a known error text, else nil
func classify(line string) error {
	num := 0
	if m := errNumRE.FindStringSubmatch(line); m != nil {
		num, _ = strconv.Atoi(m[1])
	}
	for _, s := range sentinels {
		if strings.Contains(line, s.text) {
			return RemoteError{Code: s.code, Num: num, Line: line}
		}
	}
	if num != 0 {
		return RemoteError{Code: CodeFailure, Num: num, Line: line}
	}
	return nil
}

// jsBool renders a boolean as a JavaScript literal
func jsBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// jsString renders a string as a single-quoted JavaScript literal
func jsString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// jsNum renders a float as a decimal JavaScript literal
func jsNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Client talks to one TheSkyX server.  It is concurrent safe; commands from
// concurrent callers are issued one at a time.
type Client struct {
	// Addr is the host:port of the server
	Addr string

	// Limiter, if not nil, paces commands sent to the server
	Limiter *rate.Limiter

	// Simulator, if not nil, replaces the measured average ADU of a frame
	// with an estimate from the parameters of the last exposure.  It is for
	// use without hardware, never with a real camera.
	Simulator ADUModel

	ex comm.Exchanger
	mu sync.Mutex

	simMu   sync.Mutex
	simLast simExposure
}

type simExposure struct {
	seconds float64
	binning int
	slot    int
}

// NewClient returns a client which connects to the server at addr over TCP
func NewClient(addr string) *Client {
	return NewClientTimeouts(addr, comm.DialTimeout, DefaultResponseTimeout)
}

// NewClientTimeouts is NewClient with explicit bounds on dialing and on the
// wait for each reply
func NewClientTimeouts(addr string, dial, response time.Duration) *Client {
	ex := comm.OneShot{
		Maker:   comm.BackingOffTCPConnMaker(addr, dial),
		Timeout: response}
	return &Client{Addr: addr, ex: ex}
}

// NewClientWithExchanger returns a client which sends its commands through ex.
// Mock.Exchanger is the usual argument in tests.
func NewClientWithExchanger(ex comm.Exchanger) *Client {
	return &Client{Addr: "exchanger", ex: ex}
}

// send wraps body in the script markers, sends it, checks the reply for
// errors and returns the value of Out
func (c *Client) send(body string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Limiter != nil {
		if err := c.Limiter.Wait(context.Background()); err != nil {
			return "", err
		}
	}
	var b strings.Builder
	b.WriteString(scriptHeader)
	b.WriteString(body)
	b.WriteString(scriptFooter)
	resp, err := c.ex.Exchange([]byte(b.String()))
	if err != nil {
		return "", fmt.Errorf("skyx %s: %w", c.Addr, err)
	}
	line := string(resp)
	if err := classify(line); err != nil {
		return "", err
	}
	if idx := strings.IndexByte(line, '|'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line), nil
}

// sendIgnoreReply is send for commands whose value is of no interest; the
// reply is still checked for errors
func (c *Client) sendIgnoreReply(body string) error {
	_, err := c.send(body)
	return err
}

// sendBoolReply is send for commands whose value is "1" for true, anything
// else false
func (c *Client) sendBoolReply(body string) (bool, error) {
	s, err := c.send(body)
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

func (c *Client) sendFloatReply(body string) (float64, error) {
	s, err := c.send(body)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadReply, s)
	}
	return f, nil
}

// sendPairReply is send for commands whose value is two numbers separated
// by a '/'
func (c *Client) sendPairReply(body string) (float64, float64, error) {
	s, err := c.send(body)
	if err != nil {
		return 0, 0, err
	}
	return parsePair(s)
}

func parsePair(s string) (float64, float64, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not a pair", ErrBadReply, s)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a number", ErrBadReply, parts[0])
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a number", ErrBadReply, parts[1])
	}
	return a, b, nil
}

// Raw sends a script body verbatim and returns the value of Out
func (c *Client) Raw(body string) (string, error) {
	return c.send(body)
}
