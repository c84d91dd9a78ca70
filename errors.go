// Package tarantool - see doc.go.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// Sentinel errors returned synchronously by the library (spec.md §7, "User"
// and "Protocol" taxonomies). Server errors are not sentinels; they carry
// per-occurrence detail in *Error / ErrorStack. Transport errors are passed
// through as the Stream returned them (e.g. a *net.OpError), so an OS errno
// such as EPIPE is found with errors.Is, not in Error.SavedErrno.
var (
	ErrInvalidConn       = errors.New("tarantool: invalid connection")
	ErrTimeout           = errors.New("tarantool: timeout")
	ErrWouldBlock        = errors.New("tarantool: output buffer full, would block")
	ErrProtocolViolation = errors.New("tarantool: protocol violation")
	ErrBadMsgpack        = errors.New("tarantool: malformed msgpack")
	ErrSyncMismatch      = errors.New("tarantool: reply sync does not match any pending request")
	ErrFrameTooLarge     = errors.New("tarantool: frame length prefix exceeds limit")
	ErrRidOverflow       = errors.New("tarantool: request id counter overflowed")
	ErrClosed            = errors.New("tarantool: connection closed")
	ErrInvalidConfig     = errors.New("tarantool: invalid configuration")
	ErrMaxDepthReached   = errors.New("tarantool: msgpack nesting exceeds max depth")
)

// Error mirrors the server-reported error shape of spec.md §3: a message, the
// originating source file as reported by the server, the server's saved
// errno (when the error wraps an OS-level failure), a type name, and a
// numeric error code. It implements error so it composes with errors.Is/As.
type Error struct {
	Msg        string
	File       string
	SavedErrno int
	TypeName   string
	Errcode    uint32
}

func (e *Error) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("tarantool: %s (code %d): %s", e.TypeName, e.Errcode, e.Msg)
	}
	return fmt.Sprintf("tarantool: error %d: %s", e.Errcode, e.Msg)
}

// ErrorStack is an ordered list of server-reported errors, most-recent last,
// as returned in a response body's "error" key (spec.md §4.4).
type ErrorStack []*Error

func (s ErrorStack) Error() string {
	if len(s) == 0 {
		return "tarantool: empty error stack"
	}
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.Error()
	}
	return strings.Join(parts, ": ")
}

// Logger is the minimal logging contract used throughout the package,
// matching the teacher driver's errLog shape: a single Print method an
// embedding application can intercept by replacing the package-level
// logger before opening any connection.
type Logger interface {
	Print(args ...any)
}

type defaultLogger struct {
	*log.Logger
}

func (dl *defaultLogger) Print(args ...any) {
	dl.Output(3, fmt.Sprint(args...))
}

// errLog is the logger used for diagnostics that are not returned to the
// caller; the only one it receives is a failure to open the wire-trace file
// in Connect. Connection teardown is not logged: it is reported through
// Connection.LastError and the pending requests' errors. Replace it before
// calling Connect to route to the embedding application's own logger.
var errLog Logger = &defaultLogger{log.New(os.Stderr, "[tarantool] ", log.Ldate|log.Ltime|log.Lshortfile)}

// SetLogger overrides the package-wide diagnostic logger.
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	errLog = logger
}
