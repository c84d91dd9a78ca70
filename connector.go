// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"encoding/base64"
	"fmt"
	"time"
)

// greetingSize is the fixed size of the server's plaintext greeting sent
// immediately after a connection is accepted (spec.md §4.3): a 64-byte
// banner line followed by a 64-byte line holding the base64-encoded salt.
const greetingSize = 128

// Connector is the user-facing façade (spec.md §5): it owns one NetProvider
// and every Connection dialed through it, and drives the event loop only
// when the caller asks it to wait for something. A Connector must not be
// shared across goroutines; a user running several Connectors concurrently
// gives each its own instance and its own goroutine, with no cross-Connector
// synchronisation required.
type Connector struct {
	provider NetProvider
}

// NewConnector creates a Connector with the best available NetProvider for
// the current platform.
func NewConnector() (*Connector, error) {
	p, err := newNetProvider()
	if err != nil {
		return nil, err
	}
	return &Connector{provider: p}, nil
}

// Connect dials opts' endpoint, exchanges the greeting, and authenticates
// synchronously before returning. The returned Connection is already
// registered with the Connector's NetProvider.
func (cn *Connector) Connect(opts Opts) (*Connection, error) {
	stream, err := dialStream(opts.streamOpts(), opts.ConnectTimeout())
	if err != nil {
		return nil, fmt.Errorf("tarantool: dial: %w", err)
	}

	salt, err := readGreeting(stream)
	if err != nil {
		stream.Close()
		return nil, err
	}

	conn := newConnection(stream, cn.provider, opts.MaxOutputBufferBytes)
	if err := cn.provider.Register(conn); err != nil {
		stream.Close()
		return nil, err
	}

	if opts.EnableWireTrace {
		dir := opts.TraceDir
		if dir == "" {
			dir = "."
		}
		tracer, err := OpenWireTrace(dir, salt)
		if err != nil {
			errLog.Print("tarantool: could not open wire trace file:", err)
		} else {
			conn.Tracer = tracer
		}
	}

	if opts.User != "" {
		sync, err := conn.authSync(opts.User, salt, opts.Passwd)
		if err != nil {
			conn.Close()
			return nil, err
		}
		resp, err := cn.Wait(conn, sync, opts.ConnectTimeout())
		if err != nil {
			conn.Close()
			return nil, err
		}
		if len(resp.Body.Errors) > 0 {
			conn.Close()
			return nil, resp.Body.Errors
		}
	}
	return conn, nil
}

// authSync is like the Connection.*-family request methods in
// requests_api.go, kept here since it needs the salt Connect just read off
// the wire rather than state the Connection itself tracks.
func (c *Connection) authSync(user string, salt []byte, password string) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Auth(sync, user, salt, password); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

// readGreeting reads the fixed 128-byte greeting and returns the decoded
// salt (spec.md §4.3's auth preamble). It loops Recv directly rather than
// going through the NetProvider, since authentication happens before the
// Connection exists to register.
func readGreeting(s Stream) ([]byte, error) {
	buf := make([]byte, 0, greetingSize)
	deadline := time.Now().Add(5 * time.Second)
	for len(buf) < greetingSize {
		chunk := make([]byte, greetingSize-len(buf))
		n, err := s.Recv(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil && err != ErrWouldBlock {
			return nil, fmt.Errorf("tarantool: reading greeting: %w", err)
		}
		if len(buf) < greetingSize && time.Now().After(deadline) {
			return nil, ErrTimeout
		}
	}

	saltLine := buf[64:128]
	n := 0
	for n < len(saltLine) && saltLine[n] != 0 && saltLine[n] != '\n' {
		n++
	}
	decoded, err := base64.StdEncoding.DecodeString(string(saltLine[:n]))
	if err != nil {
		return nil, fmt.Errorf("tarantool: malformed greeting salt: %w", err)
	}
	return decoded, nil
}

// Wait drives the event loop until sync's response is ready or timeout
// elapses. Per spec.md §5, timeout == 0 performs exactly one non-blocking
// poll step and returns ErrTimeout if the response isn't already there;
// timeout < 0 blocks with no bound; timeout > 0 is a normal deadline.
func (cn *Connector) Wait(conn *Connection, sync uint64, timeout time.Duration) (Response, error) {
	if timeout == 0 {
		if !conn.IsReady(sync) {
			if conn.Closed() {
				if conn.LastError() != nil {
					return Response{}, conn.LastError()
				}
				return Response{}, ErrClosed
			}
			if err := cn.provider.Wait(0); err != nil {
				return Response{}, err
			}
		}
		if !conn.IsReady(sync) {
			return Response{}, ErrTimeout
		}
		return conn.TakeResponse(sync)
	}

	deadline := time.Now().Add(timeout)
	for !conn.IsReady(sync) {
		if conn.Closed() {
			if conn.LastError() != nil {
				return Response{}, conn.LastError()
			}
			return Response{}, ErrClosed
		}
		if timeout > 0 && time.Now().After(deadline) {
			return Response{}, ErrTimeout
		}
		if err := cn.provider.Wait(20 * time.Millisecond); err != nil {
			return Response{}, err
		}
	}
	return conn.TakeResponse(sync)
}

// WaitAll waits for every listed sync on conn to become ready, returning
// responses in the same order as syncs. timeout follows the same
// zero/negative/positive rule as Wait.
func (cn *Connector) WaitAll(conn *Connection, syncs []uint64, timeout time.Duration) ([]Response, error) {
	out := make([]Response, len(syncs))
	remaining := make(map[uint64]int, len(syncs))
	for i, s := range syncs {
		remaining[s] = i
	}

	collectReady := func() error {
		for s, i := range remaining {
			if conn.IsReady(s) {
				resp, err := conn.TakeResponse(s)
				if err != nil {
					return err
				}
				out[i] = resp
				delete(remaining, s)
			}
		}
		return nil
	}

	if err := collectReady(); err != nil {
		return nil, err
	}

	if timeout == 0 {
		if len(remaining) > 0 {
			if conn.Closed() {
				if conn.LastError() != nil {
					return nil, conn.LastError()
				}
				return nil, ErrClosed
			}
			if err := cn.provider.Wait(0); err != nil {
				return nil, err
			}
			if err := collectReady(); err != nil {
				return nil, err
			}
		}
		if len(remaining) > 0 {
			return nil, ErrTimeout
		}
		return out, nil
	}

	deadline := time.Now().Add(timeout)
	for len(remaining) > 0 {
		if conn.Closed() {
			if conn.LastError() != nil {
				return nil, conn.LastError()
			}
			return nil, ErrClosed
		}
		if timeout > 0 && time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		if err := cn.provider.Wait(20 * time.Millisecond); err != nil {
			return nil, err
		}
		if err := collectReady(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type waitAnyResult struct {
	index int
	sync  uint64
	resp  Response
	err   error
}

// WaitAny waits for the first of syncs to become ready and returns its
// index, response, and the sync itself. timeout follows the same
// zero/negative/positive rule as Wait.
func (cn *Connector) WaitAny(conn *Connection, syncs []uint64, timeout time.Duration) (int, uint64, Response, error) {
	pollReady := func() (waitAnyResult, bool) {
		for i, s := range syncs {
			if conn.IsReady(s) {
				resp, err := conn.TakeResponse(s)
				return waitAnyResult{index: i, sync: s, resp: resp, err: err}, true
			}
		}
		return waitAnyResult{}, false
	}

	if r, ok := pollReady(); ok {
		return r.index, r.sync, r.resp, r.err
	}

	if timeout == 0 {
		if conn.Closed() {
			if conn.LastError() != nil {
				return -1, 0, Response{}, conn.LastError()
			}
			return -1, 0, Response{}, ErrClosed
		}
		if err := cn.provider.Wait(0); err != nil {
			return -1, 0, Response{}, err
		}
		if r, ok := pollReady(); ok {
			return r.index, r.sync, r.resp, r.err
		}
		return -1, 0, Response{}, ErrTimeout
	}

	deadline := time.Now().Add(timeout)
	for {
		if conn.Closed() {
			if conn.LastError() != nil {
				return -1, 0, Response{}, conn.LastError()
			}
			return -1, 0, Response{}, ErrClosed
		}
		if timeout > 0 && time.Now().After(deadline) {
			return -1, 0, Response{}, ErrTimeout
		}
		if err := cn.provider.Wait(20 * time.Millisecond); err != nil {
			return -1, 0, Response{}, err
		}
		if r, ok := pollReady(); ok {
			return r.index, r.sync, r.resp, r.err
		}
	}
}

// Close shuts down the Connector's NetProvider. Connections dialed through
// it should be closed individually first.
func (cn *Connector) Close() error {
	return cn.provider.Close()
}
