// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "time"

// NetProvider multiplexes readiness across every Connection registered with
// it (spec.md §5's event loop). A Connector owns exactly one NetProvider and
// drives it from a single goroutine, matching the single-threaded
// cooperative model: concurrent Connectors each get their own NetProvider
// instance with no shared state between them.
type NetProvider interface {
	// Register begins watching conn's Stream for read/write readiness.
	Register(conn *Connection) error
	// Unregister stops watching conn; safe to call during Connection.Close.
	Unregister(conn *Connection) error
	// SetWritable toggles whether conn is watched for write readiness, used
	// when Connection's output buffer transitions between empty and
	// non-empty (no point waking on writability with nothing queued).
	SetWritable(conn *Connection, writable bool) error
	// Wait blocks up to timeout for at least one registered Connection to
	// become ready, invoking conn.onReadable/conn.onWritable for each one
	// that is. A zero timeout polls without blocking.
	Wait(timeout time.Duration) error
	Close() error
}

// newNetProvider picks the best available NetProvider for the current
// platform: the epoll-backed implementation on Linux, the portable polling
// reactor everywhere else. The choice is made once per Connector; on Linux
// a Connection whose Stream exposes no raw fd (tlsStream) fails to register
// with ErrInvalidConn, since it is not handed to the reactor instead.
func newNetProvider() (NetProvider, error) {
	if p, err := newEpollProvider(); err == nil {
		return p, nil
	}
	return newReactorProvider(), nil
}
