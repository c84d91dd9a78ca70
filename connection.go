// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "sync/atomic"

// defaultMaxOutputBufferBytes is the backpressure high-water mark (spec.md
// §5): once the unsent output buffer exceeds this, Submit refuses new
// requests with ErrWouldBlock rather than growing the Buffer unboundedly
// for a peer that has stopped reading.
const defaultMaxOutputBufferBytes = 16 << 20

// pendingRequest tracks one in-flight request awaiting its reply, keyed by
// the header's sync value (spec.md §4.3/§4.4).
type pendingRequest struct {
	ready bool
	resp  Response
	err   error
}

// Connection binds one transport Stream to an input/output Buffer pair and
// a table of in-flight requests (spec.md §3/§5). It is driven entirely by
// its owning Connector's single goroutine via NetProvider callbacks; it
// does not spawn goroutines or take locks of its own, matching the
// single-threaded-per-domain model.
type Connection struct {
	stream   Stream
	provider NetProvider
	pollFD   int // set by epollProvider.Register; unused by reactorProvider

	in  *Buffer
	out *Buffer
	enc *RequestEncoder
	dec *Decoder

	haveFrameLen bool
	frameLen     uint32

	schemaVersion uint64
	nextSync      uint64
	nextStreamID  uint64

	maxOutputBytes int64

	pending map[uint64]*pendingRequest
	// closed uses atomic.Bool (rather than a plain bool, as the request-
	// counter fields above safely do) because Close is the one Connection
	// method meant to be callable from a goroutine other than the owning
	// Connector's — e.g. a caller-managed timeout that wants to abort a
	// stuck Wait from outside it.
	closed  atomic.Bool
	lastErr error

	// Tracer, if set, observes raw bytes as they cross the wire.
	Tracer WireTracer
}

func newConnection(stream Stream, provider NetProvider, maxOutputBytes int64) *Connection {
	in := NewBuffer()
	out := NewBuffer()
	c := &Connection{
		stream:         stream,
		provider:       provider,
		in:             in,
		out:            out,
		enc:            NewRequestEncoder(out),
		dec:            NewDecoder(in),
		maxOutputBytes: clampOutputBufferSize(maxOutputBytes),
		pending:        make(map[uint64]*pendingRequest),
	}
	return c
}

func clampOutputBufferSize(n int64) int64 {
	if n <= 0 {
		return defaultMaxOutputBufferBytes
	}
	return Clamp[int64](n, 1<<16, 1<<30)
}

// nextSyncID allocates the next request id, matching spec.md §4.3's sync
// correlation field. Request ids are scoped to one Connection, so this
// counter is safe without synchronization under the single-threaded model;
// wrapping is treated as exhaustion rather than silently reusing an id that
// might still be in flight. The backpressure check also lives here, before
// the caller encodes its frame, so a refused request leaves nothing in c.out.
func (c *Connection) nextSyncID() (uint64, error) {
	if int64(c.out.Size()) > c.maxOutputBytes {
		return 0, ErrWouldBlock
	}
	if c.nextSync == ^uint64(0) {
		return 0, ErrRidOverflow
	}
	c.nextSync++
	return c.nextSync, nil
}

// beginStream allocates a new stream_id for transaction-scoped requests
// (SPEC_FULL.md's Begin/Commit/Rollback supplement). 0 means "no stream",
// so ids start at 1.
func (c *Connection) beginStream() uint64 {
	c.nextStreamID++
	return c.nextStreamID
}

// submit registers a pending slot for sync and starts flushing c.out;
// callers (the request methods in requests_api.go) have already written the
// frame to c.out by the time this is called.
func (c *Connection) submit(sync uint64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.pending[sync] = &pendingRequest{}
	c.trySend()
	if c.out.Size() > 0 {
		c.provider.SetWritable(c, true)
	}
	return nil
}

// IsReady reports whether sync's response has fully arrived.
func (c *Connection) IsReady(sync uint64) bool {
	p, ok := c.pending[sync]
	return ok && p.ready
}

// TakeResponse removes and returns sync's completed response, or an error
// if it errored at the transport/protocol level (server-reported errors are
// instead carried inside Response.Body.Errors with ReadSuccess).
func (c *Connection) TakeResponse(sync uint64) (Response, error) {
	p, ok := c.pending[sync]
	if !ok || !p.ready {
		return Response{}, ErrSyncMismatch
	}
	delete(c.pending, sync)
	return p.resp, p.err
}

// Pending reports how many requests are still awaiting a reply.
func (c *Connection) Pending() int { return len(c.pending) }

// LastError is set once the Connection has torn itself down after a
// protocol violation or transport error; once non-nil, the Connection is
// no longer usable.
func (c *Connection) LastError() error { return c.lastErr }

func (c *Connection) Closed() bool { return c.closed.Load() }

// onReadable is invoked by the NetProvider when the Stream may have bytes
// available. It drains the socket into c.in, then decodes as many complete
// frames as are buffered.
func (c *Connection) onReadable() {
	if c.closed.Load() {
		return
	}
	for {
		chunk := c.in.Reserve(16384)
		n, err := c.stream.Recv(chunk)
		if n > 0 {
			c.in.AdvanceWrite(n)
			if c.Tracer != nil {
				c.Tracer.TraceRecv(chunk[:n])
			}
		}
		if err != nil {
			if err == ErrWouldBlock {
				break
			}
			c.fail(err)
			return
		}
		if n == 0 {
			c.fail(ErrClosed)
			return
		}
		if n < len(chunk) {
			break
		}
	}
	c.drainFrames()
}

func (c *Connection) drainFrames() {
	for {
		if !c.haveFrameLen {
			length, res := DecodeFrameLength(c.in)
			switch res {
			case ReadSuccess:
				c.frameLen = length
				c.haveFrameLen = true
			case ReadNeedMore:
				return
			default:
				c.fail(ErrBadMsgpack)
				return
			}
		}
		if int64(c.in.Size()) < int64(c.frameLen) {
			return
		}

		header, res := DecodeHeader(c.dec)
		if res != ReadSuccess {
			c.fail(ErrBadMsgpack)
			return
		}
		body, res := DecodeBody(c.dec, c.in, header.Code)
		if res != ReadSuccess {
			c.fail(ErrBadMsgpack)
			return
		}
		c.haveFrameLen = false
		c.schemaVersion = header.SchemaVersion

		p, ok := c.pending[header.Sync]
		if !ok {
			// Unsolicited reply: spec.md §4.5 and §9 both call this a fatal
			// protocol violation, not a caller-discretion drop.
			c.fail(ErrProtocolViolation)
			return
		}
		p.ready = true
		p.resp = Response{Header: header, Body: body}
	}
}

// onWritable is invoked by the NetProvider when the Stream can accept more
// output.
func (c *Connection) onWritable() {
	if c.closed.Load() {
		return
	}
	c.trySend()
	if c.out.Size() == 0 {
		c.provider.SetWritable(c, false)
	}
}

func (c *Connection) trySend() {
	for c.out.Size() > 0 {
		avail, _ := c.out.Read(c.out.Size())
		n, err := c.stream.Send(avail)
		if n > 0 {
			if c.Tracer != nil {
				c.Tracer.TraceSend(avail[:n])
			}
			c.out.Consume(n)
		}
		if err != nil {
			if err == ErrWouldBlock {
				return
			}
			c.fail(err)
			return
		}
		if n == 0 {
			return
		}
	}
}

func (c *Connection) fail(err error) {
	if c.closed.Load() {
		return
	}
	c.lastErr = err
	for sync, p := range c.pending {
		if !p.ready {
			p.ready = true
			p.err = err
			c.pending[sync] = p
		}
	}
	c.Close()
}

// Close tears down the Stream and unregisters from the NetProvider. Safe to
// call more than once.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.provider != nil {
		c.provider.Unregister(c)
	}
	return c.stream.Close()
}
