// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// WireTracer optionally records raw frame bytes for offline debugging
// (spec.md §9's "a debug build may want to dump raw frames"). It is nil by
// default; set Connection.Tracer to enable it. Frames are never decoded
// specially for the tracer — it just sees what went over the wire.
type WireTracer interface {
	TraceSend(p []byte)
	TraceRecv(p []byte)
}

// TraceFileName derives a stable, non-reversible file name for a trace
// session from the connection's greeting salt, so trace files for distinct
// connections to the same host don't collide and the salt itself (which
// feeds the auth scramble) never appears in a log path verbatim. This is
// the one place the client uses an HKDF derivation (SPEC_FULL.md's
// domain-stack wiring for golang.org/x/crypto) rather than hashing the salt
// directly; the "info" label keeps the derivation purpose-scoped in case
// the same salt is ever used to derive something else.
func TraceFileName(salt []byte) string {
	h := hkdf.New(sha256.New, salt, nil, []byte("tarantool-wire-trace"))
	out := make([]byte, 8)
	if _, err := io.ReadFull(h, out); err != nil {
		// salt is always non-empty server-provided bytes in practice; a
		// short read here means crypto/sha256 itself is broken.
		panic(err)
	}
	return "tarantool-trace-" + hex.EncodeToString(out) + ".bin"
}

// fileTracer writes every traced chunk to a single file, prefixed with a
// direction byte ('>' for sent, '<' for received) so a captured trace can
// be split back into the two directions during offline analysis.
type fileTracer struct {
	mu sync.Mutex
	f  *os.File
}

// OpenWireTrace opens (creating if needed) the trace file for salt under
// dir, per Opts.TraceDir/Opts.EnableWireTrace.
func OpenWireTrace(dir string, salt []byte) (WireTracer, error) {
	path := filepath.Join(dir, TraceFileName(salt))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileTracer{f: f}, nil
}

func (t *fileTracer) TraceSend(p []byte) { t.write('>', p) }
func (t *fileTracer) TraceRecv(p []byte) { t.write('<', p) }

func (t *fileTracer) write(dir byte, p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.f.Write([]byte{dir})
	t.f.Write(p)
}

func (t *fileTracer) Close() error { return t.f.Close() }
