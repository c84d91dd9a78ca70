// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "testing"

func TestBufferAppendAndRead(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("hello"))
	b.Append([]byte(" world"))

	got, ok := b.Read(11)
	if !ok {
		t.Fatalf("Read: want ok")
	}
	if string(got) != "hello world" {
		t.Fatalf("Read: got %q", got)
	}
	if b.Size() != 11 {
		t.Fatalf("Size: got %d, want 11", b.Size())
	}
}

func TestBufferConsumeAdvancesReadCursor(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("0123456789"))
	b.Consume(4)
	got, ok := b.Read(6)
	if !ok || string(got) != "456789" {
		t.Fatalf("Read after Consume: got %q, ok=%v", got, ok)
	}
}

func TestBufferReadNeedsMoreReturnsFalse(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("ab"))
	if _, ok := b.Read(3); ok {
		t.Fatalf("Read: want ok=false when fewer bytes are buffered than requested")
	}
	// Buffer must be unaffected by a failed Read.
	got, ok := b.Read(2)
	if !ok || string(got) != "ab" {
		t.Fatalf("Read after failed Read: got %q, ok=%v", got, ok)
	}
}

func TestBufferReadAtIsAbsoluteAndStable(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("0123456789"))
	b.Consume(5)
	// ReadAt uses absolute stream offsets, independent of the read cursor.
	got, ok := b.ReadAt(2, 4)
	if !ok || string(got) != "2345" {
		t.Fatalf("ReadAt: got %q, ok=%v", got, ok)
	}
	// Consumed bytes stay readable until a Reserve compacts them away.
	b.Reserve(1)
	if _, ok := b.ReadAt(0, 2); ok {
		t.Fatalf("ReadAt: want ok=false for offsets already discarded")
	}
}

func TestBufferPatchAtOverwritesPlaceholder(t *testing.T) {
	b := NewBuffer()
	cursor := b.SaveCursor()
	b.Append([]byte{0, 0, 0, 0})
	b.Append([]byte("payload"))
	if !b.PatchAt(cursor, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("PatchAt: want ok")
	}
	got, _ := b.Read(11)
	if string(got[:4]) != "\xde\xad\xbe\xef" {
		t.Fatalf("PatchAt: placeholder not overwritten, got %x", got[:4])
	}
	if string(got[4:]) != "payload" {
		t.Fatalf("PatchAt: payload corrupted, got %q", got[4:])
	}
}

func TestBufferRewindDiscardsUnwantedTail(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("keep"))
	cursor := b.SaveCursor()
	b.Append([]byte("discard-me"))
	b.Rewind(cursor)
	got, ok := b.Read(4)
	if !ok || string(got) != "keep" {
		t.Fatalf("Rewind: got %q, ok=%v", got, ok)
	}
}

func TestBufferGrowsPastInitialCapacity(t *testing.T) {
	b := NewBuffer()
	big := make([]byte, defaultBufSize*3)
	for i := range big {
		big[i] = byte(i)
	}
	b.Append(big)
	got, ok := b.Read(len(big))
	if !ok {
		t.Fatalf("Read: want ok")
	}
	for i, v := range got {
		if v != byte(i) {
			t.Fatalf("byte %d: got %d, want %d", i, v, byte(i))
		}
	}
}
