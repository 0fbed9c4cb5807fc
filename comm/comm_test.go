package comm_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nasa-jpl/autoflat/comm"
)

var endMarker = []byte("/* end */\n")

func upper(req []byte) []byte {
	req = bytes.TrimSuffix(req, endMarker)
	return bytes.ToUpper(req)
}

func TestOneShotOverPipe(t *testing.T) {
	o := comm.OneShot{Maker: comm.PipeMaker(endMarker, '\n', upper)}
	resp, err := o.Exchange([]byte("hello/* end */\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "HELLO" {
		t.Errorf("expected HELLO got %q", resp)
	}
}

func TestOneShotOpensAConnectionPerExchange(t *testing.T) {
	opened := 0
	pipe := comm.PipeMaker(endMarker, '\n', upper)
	maker := func() (io.ReadWriteCloser, error) {
		opened++
		return pipe()
	}
	o := comm.OneShot{Maker: maker, Timeout: time.Second}
	for i := 0; i < 3; i++ {
		if _, err := o.Exchange([]byte("x/* end */\n")); err != nil {
			t.Fatal(err)
		}
	}
	if opened != 3 {
		t.Errorf("expected 3 connections to be opened, got %d", opened)
	}
}

func TestOneShotStripsCarriageReturn(t *testing.T) {
	h := func([]byte) []byte { return []byte("1\r") }
	o := comm.OneShot{Maker: comm.PipeMaker(endMarker, '\n', h)}
	resp, err := o.Exchange([]byte("/* end */\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "1" {
		t.Errorf("expected 1 got %q", resp)
	}
}

func TestOneShotWithoutMakerErrors(t *testing.T) {
	o := comm.OneShot{}
	_, err := o.Exchange([]byte("x"))
	if !errors.Is(err, comm.ErrNoMaker) {
		t.Errorf("expected ErrNoMaker, got %v", err)
	}
}

func TestOneShotMissingTerminator(t *testing.T) {
	maker := func() (io.ReadWriteCloser, error) {
		client, server := net.Pipe()
		go func() {
			buf := make([]byte, 64)
			server.Read(buf)
			server.Write([]byte("no newline"))
			server.Close()
		}()
		return client, nil
	}
	o := comm.OneShot{Maker: maker}
	_, err := o.Exchange([]byte("x"))
	if !errors.Is(err, comm.ErrTerminatorNotFound) {
		t.Errorf("expected ErrTerminatorNotFound, got %v", err)
	}
}

func TestOneShotOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("could not listen, test aborted:", err)
	}
	defer ln.Close()
	go comm.Serve(ln, endMarker, '\n', upper)

	o := comm.OneShot{
		Maker:   comm.BackingOffTCPConnMaker(ln.Addr().String(), comm.DialTimeout),
		Timeout: 2 * time.Second}
	resp, err := o.Exchange([]byte("over tcp/* end */\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "OVER TCP" {
		t.Errorf("expected OVER TCP got %q", resp)
	}
}
