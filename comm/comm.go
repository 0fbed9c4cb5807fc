/*Package comm provides the transport used to talk to remote control software
that speaks a request/response text protocol over TCP.

Most usages of this package will boil down to:
	1.  build a CreationFunc, usually with BackingOffTCPConnMaker
	2.  wrap it in a OneShot, which opens a fresh connection for every
		exchange, writes the request, reads one terminated line and closes
	3.  write typed methods on top of Exchange that format requests and
		parse the returned line

Some servers (TheSkyX among them) do not tolerate a connection being held
open between commands, and do not like being connection thrashed either.
OneShot handles the former, the backoff in BackingOffTCPConnMaker the latter.

A minimal example for a sensor that responds to "RD?" with a temperature:

	type MySensor struct {
		comm.OneShot
	}

	func (ms *MySensor) ReadTemp() (float64, error) {
		resp, err := ms.Exchange([]byte("RD?\r"))
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(string(resp), 64)
	}
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	// DialTimeout is the default timeout on connect
	DialTimeout = 3 * time.Second

	// Newline is the default receipt terminator
	Newline = byte('\n')
)

var (
	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")

	// ErrShortWrite is generated when the remote did not accept the whole request
	ErrShortWrite = errors.New("remote did not accept all bytes of the request")

	// ErrNoMaker is generated when a OneShot has no CreationFunc
	ErrNoMaker = errors.New("no connection maker configured")
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// Exchanger sends a request and returns the single line response to it
type Exchanger interface {
	Exchange([]byte) ([]byte, error)
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc that dials addr, retrying
// with an exponential backoff for up to a few seconds when the remote refuses
// or resets.  A dial that times out is not retried, the full timeout has
// already been spent.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			return nil, fmt.Errorf("connection to %s failed: %w", addr, err)
		}
		return conn, nil
	}
}

// OneShot is an Exchanger which opens a new connection for every exchange.
//
// Timeout, if nonzero, bounds the whole write-then-read; it replaces any
// deadline set by the CreationFunc.  Synchronous remote operations (a homing
// move, a blocking exposure) hold the response until they complete, so it
// must be longer than the slowest of those.
type OneShot struct {
	Maker CreationFunc

	// Terminator ends the response, Newline if zero
	Terminator byte

	Timeout time.Duration
}

// Exchange writes req on a fresh connection and returns one response line
// with the terminator (and any carriage return before it) stripped
func (o OneShot) Exchange(req []byte) ([]byte, error) {
	if o.Maker == nil {
		return nil, ErrNoMaker
	}
	conn, err := o.Maker()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if o.Timeout > 0 {
		if nc, ok := conn.(interface{ SetDeadline(time.Time) error }); ok {
			nc.SetDeadline(time.Now().Add(o.Timeout))
		}
	}
	n, err := conn.Write(req)
	if err != nil {
		return nil, fmt.Errorf("write to remote: %w", err)
	}
	if n != len(req) {
		return nil, ErrShortWrite
	}
	term := o.Terminator
	if term == 0 {
		term = Newline
	}
	buf, err := bufio.NewReader(conn).ReadBytes(term)
	if err != nil {
		if err == io.EOF && len(buf) > 0 {
			return buf, ErrTerminatorNotFound
		}
		return nil, fmt.Errorf("read from remote: %w", err)
	}
	buf = bytes.TrimSuffix(buf, []byte{term})
	buf = bytes.TrimSuffix(buf, []byte{'\r'})
	return buf, nil
}

// Handler produces the response to one request.  The response should not
// include the terminator, ServeConn appends it.
type Handler func(req []byte) []byte

// ServeConn reads one request from conn, delimited by the end marker, writes
// handler's response followed by term, and closes the connection.
func ServeConn(conn io.ReadWriteCloser, end []byte, term byte, h Handler) error {
	defer conn.Close()
	var (
		req []byte
		buf = make([]byte, 1500)
	)
	for !bytes.Contains(req, end) {
		n, err := conn.Read(buf)
		req = append(req, buf[:n]...)
		if err != nil {
			if err == io.EOF && bytes.Contains(req, end) {
				break
			}
			return err
		}
	}
	resp := append(h(req), term)
	_, err := conn.Write(resp)
	return err
}

// Serve accepts connections on ln until it is closed and answers each with
// ServeConn in its own goroutine
func Serve(ln net.Listener, end []byte, term byte, h Handler) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go ServeConn(conn, end, term, h)
	}
}

// PipeMaker returns a CreationFunc that produces in-memory connections whose
// far end is answered by h.  It stands in for a TCP server in tests.
func PipeMaker(end []byte, term byte, h Handler) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		client, server := net.Pipe()
		go ServeConn(server, end, term, h)
		return client, nil
	}
}
