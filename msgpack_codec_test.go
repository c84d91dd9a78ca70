// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "testing"

func decodeOneValue(t *testing.T, buf *Buffer) Value {
	t.Helper()
	dec := NewDecoder(buf)
	v, res := dec.DecodeAny()
	if res != ReadSuccess {
		t.Fatalf("DecodeAny: res=%v", res)
	}
	return v
}

func TestEncodeDecodeScalars(t *testing.T) {
	buf := NewBuffer()
	enc := NewEncoder(buf)

	enc.EncodeUint(42)
	enc.EncodeInt(-17)
	enc.EncodeBool(true)
	enc.EncodeNil()
	enc.EncodeFloat64(3.5)
	enc.EncodeStr("hi")

	if v := decodeOneValue(t, buf); v.Kind() != FamilyInt {
		t.Fatalf("uint: kind=%v", v.Kind())
	} else if u, _ := v.Uint(); u != 42 {
		t.Fatalf("uint: got %d", u)
	}

	if v := decodeOneValue(t, buf); v.Kind() != FamilyInt {
		t.Fatalf("int: kind=%v", v.Kind())
	} else if i, _ := v.Int(); i != -17 {
		t.Fatalf("int: got %d", i)
	}

	if v := decodeOneValue(t, buf); v.Kind() != FamilyBool {
		t.Fatalf("bool: kind=%v", v.Kind())
	} else if b, _ := v.Bool(); !b {
		t.Fatalf("bool: got false")
	}

	if v := decodeOneValue(t, buf); v.Kind() != FamilyNil {
		t.Fatalf("nil: kind=%v", v.Kind())
	}

	if v := decodeOneValue(t, buf); v.Kind() != FamilyFloat {
		t.Fatalf("float: kind=%v", v.Kind())
	} else if f, _ := v.Float64(); f != 3.5 {
		t.Fatalf("float: got %v", f)
	}

	if v := decodeOneValue(t, buf); v.Kind() != FamilyStr {
		t.Fatalf("str: kind=%v", v.Kind())
	} else if s, ok := v.Str(buf); !ok || s != "hi" {
		t.Fatalf("str: got %q, ok=%v", s, ok)
	}
}

func TestEncodeDecodeArrayAndMap(t *testing.T) {
	buf := NewBuffer()
	enc := NewEncoder(buf)

	enc.EncodeArrayHeader(2)
	enc.EncodeUint(1)
	enc.EncodeUint(2)

	enc.EncodeMapHeader(1)
	enc.EncodeStr("k")
	enc.EncodeStr("v")

	arr := decodeOneValue(t, buf)
	if arr.Kind() != FamilyArr {
		t.Fatalf("arr: kind=%v", arr.Kind())
	}
	if n := arrElementCount(buf, arr); n != 2 {
		t.Fatalf("arr: element count=%d, want 2", n)
	}

	m := decodeOneValue(t, buf)
	if m.Kind() != FamilyMap {
		t.Fatalf("map: kind=%v", m.Kind())
	}
}

func TestDecodeNeedMoreConsumesNothing(t *testing.T) {
	buf := NewBuffer()
	enc := NewEncoder(buf)
	enc.EncodeStr("a longer string that needs a length prefix to decode")

	full, _ := buf.Read(buf.Size())
	truncated := append([]byte{}, full[:len(full)-1]...)

	probe := NewBuffer()
	probe.Append(truncated)
	dec := NewDecoder(probe)
	sizeBefore := probe.Size()
	if _, res := dec.DecodeAny(); res != ReadNeedMore {
		t.Fatalf("DecodeAny on truncated input: res=%v, want ReadNeedMore", res)
	}
	if probe.Size() != sizeBefore {
		t.Fatalf("DecodeAny must not consume on ReadNeedMore: size changed from %d to %d", sizeBefore, probe.Size())
	}

	probe.Append(full[len(full)-1:])
	v, res := dec.DecodeAny()
	if res != ReadSuccess {
		t.Fatalf("DecodeAny on completed input: res=%v", res)
	}
	if s, _ := v.Str(probe); s != "a longer string that needs a length prefix to decode" {
		t.Fatalf("decoded string mismatch: %q", s)
	}
}

func TestFamilyAcceptDispatch(t *testing.T) {
	buf := NewBuffer()
	enc := NewEncoder(buf)
	enc.EncodeUint(7)

	dec := NewDecoder(buf)
	var got Value
	res := dec.DecodeWith(captureOf(FamilyStr, &got))
	if res != ReadWrongType {
		t.Fatalf("DecodeWith with mismatched Accept: res=%v, want ReadWrongType", res)
	}
}
