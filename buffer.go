// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

const defaultBufSize = 4 * 1024

// maxCachedBufSize bounds how large a buffer's backing array is allowed to
// stay resident after a big frame has drained; bigger buffers are released
// back to a freshly-sized allocation the next time they go empty, the same
// policy the teacher driver applies to its packet buffer.
const maxCachedBufSize = 256 * 1024

// Cursor is an opaque position in a Buffer's write stream, obtained from
// Buffer.SaveCursor. It survives compaction (reclaiming consumed bytes from
// the front of the buffer never invalidates a cursor that points past the
// read position) because it names an absolute, monotonically increasing
// stream position rather than a raw slice index.
type Cursor struct{ abs int64 }

// Buffer is a growable, non-contiguous-looking byte buffer with independent
// read and write cursors (spec.md §4.1). Physically it is backed by a single
// reallocatable region; bytes behind the read cursor are periodically
// compacted out, which is invisible to callers because all positions are
// expressed as absolute stream offsets translated through discarded.
type Buffer struct {
	data      []byte
	discarded int64 // absolute offset of data[0]; bytes before it no longer exist
	rpos      int64 // absolute read position
	wpos      int64 // absolute write position
}

// NewBuffer allocates a Buffer with a small initial backing array.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, defaultBufSize)}
}

// physLen is how many live bytes (write cursor minus discard point) fit in
// data right now.
func (b *Buffer) physLen() int64 { return b.wpos - b.discarded }

// grow ensures at least n more bytes of writable capacity exist past wpos,
// compacting already-consumed bytes first and only then reallocating.
// Amortised O(1): capacity at least doubles whenever a real allocation is
// needed.
func (b *Buffer) grow(n int64) {
	need := b.physLen() + n
	if int64(cap(b.data)) >= need+(b.rpos-b.discarded) {
		// Compact in place: drop the already-consumed prefix, reusing cap.
		if b.rpos > b.discarded {
			copy(b.data, b.data[b.rpos-b.discarded:b.physLen()])
			b.data = b.data[:b.physLen()-(b.rpos-b.discarded)]
			b.discarded = b.rpos
		}
		if int64(cap(b.data)) >= need {
			return
		}
	}
	// Need a bigger backing array. Drop the consumed prefix while copying.
	newCap := int64(cap(b.data))
	if newCap == 0 {
		newCap = defaultBufSize
	}
	for newCap < need {
		newCap *= 2
	}
	live := b.data[b.rpos-b.discarded : b.physLen()]
	nd := make([]byte, len(live), newCap)
	copy(nd, live)
	b.data = nd
	b.discarded = b.rpos
}

// Reserve returns a writable window of exactly n bytes past the current
// write cursor. The window stays valid until the next Reserve call that
// triggers reallocation; call AdvanceWrite once the caller has filled it.
func (b *Buffer) Reserve(n int) []byte {
	b.grow(int64(n))
	start := b.wpos - b.discarded
	// Ensure the slice backing array is addressable up to start+n even
	// though wpos hasn't advanced yet.
	if int64(len(b.data)) < start+int64(n) {
		b.data = b.data[:start+int64(n)]
	}
	return b.data[start : start+int64(n) : start+int64(n)]
}

// AdvanceWrite commits n bytes previously obtained via Reserve.
func (b *Buffer) AdvanceWrite(n int) { b.wpos += int64(n) }

// Append is a convenience wrapper around Reserve+AdvanceWrite+copy for the
// common case of writing a ready-made slice.
func (b *Buffer) Append(p []byte) {
	copy(b.Reserve(len(p)), p)
	b.AdvanceWrite(len(p))
}

// Read returns a readable view of the next n unread bytes without consuming
// them. The view stays valid until the next Reserve or Append: those may
// compact consumed bytes out of the backing array in place, which shifts
// the bytes under an older view.
func (b *Buffer) Read(n int) ([]byte, bool) {
	if b.wpos-b.rpos < int64(n) {
		return nil, false
	}
	start := b.rpos - b.discarded
	return b.data[start : start+int64(n)], true
}

// ReadAt returns a view of n bytes at an absolute stream offset, used by the
// Decoder to hand the application zero-copy views (spec.md §3's
// offset+size-backed Value variants) without moving the read cursor.
func (b *Buffer) ReadAt(offset int64, n int) ([]byte, bool) {
	if offset < b.discarded || offset+int64(n) > b.wpos {
		return nil, false
	}
	start := offset - b.discarded
	return b.data[start : start+int64(n)], true
}

// Consume advances the read cursor by n bytes, permanently discarding them
// (they may be compacted away on a subsequent Reserve).
func (b *Buffer) Consume(n int) {
	b.rpos += int64(n)
	if b.rpos > b.wpos {
		b.rpos = b.wpos
	}
	if b.rpos == b.wpos && cap(b.data) > maxCachedBufSize {
		b.data = make([]byte, 0, defaultBufSize)
		b.discarded = b.rpos
	}
}

// Size is the number of unread bytes (write cursor minus read cursor).
func (b *Buffer) Size() int { return int(b.wpos - b.rpos) }

// SaveCursor captures the current write position, to be patched or rewound
// to later — e.g. the Request Encoder's 5-byte length placeholder, or
// aborting a partially built frame.
func (b *Buffer) SaveCursor() Cursor { return Cursor{abs: b.wpos} }

// PatchAt overwrites len(p) already-written bytes at cursor with p. cursor
// plus len(p) must not exceed the current write position.
func (b *Buffer) PatchAt(cursor Cursor, p []byte) bool {
	if cursor.abs < b.discarded || cursor.abs+int64(len(p)) > b.wpos {
		return false
	}
	start := cursor.abs - b.discarded
	copy(b.data[start:start+int64(len(p))], p)
	return true
}

// Rewind truncates the write cursor back to cursor, discarding any bytes
// written after it. Used to abort a partially constructed frame.
func (b *Buffer) Rewind(cursor Cursor) {
	if cursor.abs < b.rpos || cursor.abs > b.wpos {
		return
	}
	b.wpos = cursor.abs
	b.data = b.data[:b.wpos-b.discarded]
}

// WritePos exposes the current absolute write offset, used by the net
// provider to know how much unflushed data the Request Encoder produced.
func (b *Buffer) WritePos() int64 { return b.wpos }

// ReadPos exposes the current absolute read offset.
func (b *Buffer) ReadPos() int64 { return b.rpos }
