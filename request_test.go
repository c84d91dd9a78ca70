// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "testing"

func decodeFrameForTest(t *testing.T, buf *Buffer) (ResponseHeader, uint32) {
	t.Helper()
	dec := NewDecoder(buf)
	length, res := DecodeFrameLength(buf)
	if res != ReadSuccess {
		t.Fatalf("DecodeFrameLength: res=%v", res)
	}
	header, res := DecodeHeader(dec)
	if res != ReadSuccess {
		t.Fatalf("DecodeHeader: res=%v", res)
	}
	return header, length
}

func TestRequestEncoderPingRoundTrips(t *testing.T) {
	buf := NewBuffer()
	enc := NewRequestEncoder(buf)
	if err := enc.Ping(7); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	header, _ := decodeFrameForTest(t, buf)
	if header.Code != iprotoPing {
		t.Fatalf("Code: got %#x, want %#x", header.Code, iprotoPing)
	}
	if header.Sync != 7 {
		t.Fatalf("Sync: got %d, want 7", header.Sync)
	}

	// header.Code is the request type here, not a reply status, so decode
	// the body as a success reply.
	dec := NewDecoder(buf)
	body, res := DecodeBody(dec, buf, iprotoOK)
	if res != ReadSuccess {
		t.Fatalf("DecodeBody: res=%v", res)
	}
	if body.HasData || len(body.Errors) != 0 {
		t.Fatalf("ping body should be empty: %+v", body)
	}
}

func TestRequestEncoderInsertRoundTrips(t *testing.T) {
	buf := NewBuffer()
	enc := NewRequestEncoder(buf)
	if err := enc.Insert(1, 0, 512, []any{uint64(1), "hello"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	length, res := DecodeFrameLength(buf)
	if res != ReadSuccess {
		t.Fatalf("DecodeFrameLength: res=%v", res)
	}
	if int(length) != buf.Size() {
		t.Fatalf("frame length=%d, remaining buffered=%d", length, buf.Size())
	}

	dec := NewDecoder(buf)
	header, res := DecodeHeader(dec)
	if res != ReadSuccess {
		t.Fatalf("DecodeHeader: res=%v", res)
	}
	if header.Code != iprotoInsert || header.Sync != 1 {
		t.Fatalf("header: %+v", header)
	}

	var spaceV, tupleV Value
	r := newKeyedMapReader(map[uint64]*Value{
		iprotoSpaceID: &spaceV,
		iprotoTuple:   &tupleV,
	})
	if res := dec.DecodeWith(r); res != ReadSuccess {
		t.Fatalf("decode body: res=%v", res)
	}
	if u, _ := spaceV.Uint(); u != 512 {
		t.Fatalf("space_id: got %d, want 512", u)
	}
	if tupleV.Kind() != FamilyArr {
		t.Fatalf("tuple: kind=%v", tupleV.Kind())
	}
	if n := arrElementCount(buf, tupleV); n != 2 {
		t.Fatalf("tuple elements: got %d, want 2", n)
	}
}

func TestScrambleIsDeterministicAndSaltSensitive(t *testing.T) {
	salt := []byte("0123456789abcdef0123")
	a := Scramble(salt, "secret")
	b := Scramble(salt, "secret")
	if string(a) != string(b) {
		t.Fatalf("Scramble must be deterministic for the same input")
	}

	other := Scramble([]byte("zzzzzzzzzzzzzzzzzzzz"), "secret")
	if string(a) == string(other) {
		t.Fatalf("Scramble must depend on the salt")
	}

	if Scramble(salt, "") != nil {
		t.Fatalf("Scramble with empty password should return nil")
	}
}

func TestBeginCarriesStreamID(t *testing.T) {
	buf := NewBuffer()
	enc := NewRequestEncoder(buf)
	if err := enc.Begin(1, 0, 99); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	DecodeFrameLength(buf)
	dec := NewDecoder(buf)
	var streamV Value
	r := newKeyedMapReader(map[uint64]*Value{iprotoStreamID: &streamV})
	if res := dec.DecodeWith(r); res != ReadSuccess {
		t.Fatalf("decode header: res=%v", res)
	}
	if u, ok := streamV.Uint(); !ok || u != 99 {
		t.Fatalf("stream_id: got %v, ok=%v", u, ok)
	}
}
