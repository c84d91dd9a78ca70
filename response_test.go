// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "testing"

// buildReplyFrame hand-encodes a full reply frame (length prefix + header +
// body) the way a server would, so DecodeHeader/DecodeBody can be exercised
// without a live connection.
func buildReplyFrame(t *testing.T, header map[string]any, bodyFn func(enc *Encoder)) *Buffer {
	t.Helper()
	buf := NewBuffer()
	placeholder := buf.SaveCursor()
	buf.Append([]byte{mpUint32, 0, 0, 0, 0})

	enc := NewEncoder(buf)
	enc.EncodeMapHeader(2)
	enc.EncodeUint(iprotoRequestType)
	enc.EncodeUint(header["code"].(uint64))
	enc.EncodeUint(iprotoSync)
	enc.EncodeUint(header["sync"].(uint64))

	bodyFn(enc)

	length := uint32(buf.WritePos() - (placeholder.abs + 5))
	buf.PatchAt(placeholder, []byte{mpUint32, byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length)})
	return buf
}

func TestDecodeHeaderAndSuccessBody(t *testing.T) {
	buf := buildReplyFrame(t, map[string]any{"code": uint64(iprotoOK), "sync": uint64(5)}, func(enc *Encoder) {
		enc.EncodeMapHeader(1)
		enc.EncodeUint(iprotoData)
		enc.EncodeArrayHeader(2)
		enc.EncodeArrayHeader(2)
		enc.EncodeUint(1)
		enc.EncodeStr("a")
		enc.EncodeArrayHeader(2)
		enc.EncodeUint(2)
		enc.EncodeStr("b")
	})

	length, res := DecodeFrameLength(buf)
	if res != ReadSuccess {
		t.Fatalf("DecodeFrameLength: res=%v", res)
	}
	if int(length) != buf.Size() {
		t.Fatalf("length=%d, remaining=%d", length, buf.Size())
	}

	dec := NewDecoder(buf)
	header, res := DecodeHeader(dec)
	if res != ReadSuccess {
		t.Fatalf("DecodeHeader: res=%v", res)
	}
	if header.Code != iprotoOK || header.Sync != 5 {
		t.Fatalf("header: %+v", header)
	}

	body, res := DecodeBody(dec, buf, header.Code)
	if res != ReadSuccess {
		t.Fatalf("DecodeBody: res=%v", res)
	}
	if !body.HasData {
		t.Fatalf("expected HasData")
	}
	if body.Dimension != 2 {
		t.Fatalf("Dimension: got %d, want 2", body.Dimension)
	}
	if len(body.Errors) != 0 {
		t.Fatalf("success response must carry no errors: %v", body.Errors)
	}
}

func TestDecodeBodyErrorStack(t *testing.T) {
	const errCode = 0x0302
	buf := buildReplyFrame(t, map[string]any{"code": uint64(errCode), "sync": uint64(9)}, func(enc *Encoder) {
		enc.EncodeMapHeader(1)
		enc.EncodeUint(iprotoError)
		enc.EncodeArrayHeader(1)
		enc.EncodeMapHeader(2)
		enc.EncodeUint(errKeyMessage)
		enc.EncodeStr("space not found")
		enc.EncodeUint(errKeyErrcode)
		enc.EncodeUint(uint64(errCode))
	})

	DecodeFrameLength(buf)
	dec := NewDecoder(buf)
	header, res := DecodeHeader(dec)
	if res != ReadSuccess {
		t.Fatalf("DecodeHeader: res=%v", res)
	}

	body, res := DecodeBody(dec, buf, header.Code)
	if res != ReadSuccess {
		t.Fatalf("DecodeBody: res=%v", res)
	}
	if len(body.Errors) != 1 {
		t.Fatalf("Errors: got %d entries, want 1", len(body.Errors))
	}
	if body.Errors[0].Msg != "space not found" {
		t.Fatalf("Errors[0].Msg: got %q", body.Errors[0].Msg)
	}
	if body.Errors[0].Errcode != errCode {
		t.Fatalf("Errors[0].Errcode: got %#x, want %#x", body.Errors[0].Errcode, errCode)
	}
}

func TestDecodeBodySQLInfo(t *testing.T) {
	buf := buildReplyFrame(t, map[string]any{"code": uint64(iprotoOK), "sync": uint64(3)}, func(enc *Encoder) {
		enc.EncodeMapHeader(1)
		enc.EncodeUint(iprotoSQLInfo)
		enc.EncodeMapHeader(2)
		enc.EncodeUint(sqlInfoRowCount)
		enc.EncodeUint(3)
		enc.EncodeUint(sqlInfoAutoincrementIDs)
		enc.EncodeArrayHeader(2)
		enc.EncodeUint(10)
		enc.EncodeUint(11)
	})

	DecodeFrameLength(buf)
	dec := NewDecoder(buf)
	header, _ := DecodeHeader(dec)
	body, res := DecodeBody(dec, buf, header.Code)
	if res != ReadSuccess {
		t.Fatalf("DecodeBody: res=%v", res)
	}
	if body.SQL == nil || body.SQL.Info == nil {
		t.Fatalf("expected SQL.Info to be populated")
	}
	if !body.SQL.Info.HasRowCount || body.SQL.Info.RowCount != 3 {
		t.Fatalf("RowCount: %+v", body.SQL.Info)
	}
	if len(body.SQL.Info.AutoincrementIDs) != 2 || body.SQL.Info.AutoincrementIDs[0] != 10 {
		t.Fatalf("AutoincrementIDs: %v", body.SQL.Info.AutoincrementIDs)
	}
}
