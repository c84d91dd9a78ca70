// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"fmt"

	"github.com/google/uuid"
)

// Ext type codes reserved by the wire protocol (spec.md §6).
const (
	ExtDecimal int8 = -1
	ExtUUID    int8 = -2
	ExtError   int8 = -4
)

// Value is a tagged union over the ten MsgPack kinds, variant order matching
// original_source/drewdzzz/tntcxx's Value_t exactly: nil, bool, uint64,
// int64, float32, float64, str-view, bin-view, arr-view, map-view,
// ext-view. Go has no native union, so the struct simply carries every
// variant's storage and a kind tag; this costs a few bytes of padding per
// Value in exchange for avoiding an interface{} allocation on every decode.
//
// Strings, binaries and composites (arr/map/ext) do not copy their payload:
// they hold offset+size into the Buffer that produced them, so the Buffer
// must outlive any Value read from it (spec.md §3's ownership note).
type Value struct {
	kind   Family
	b      bool
	u      uint64
	i      int64
	f32    float32
	f64    float64
	offset uint32
	size   uint32
	extTyp int8
}

// Kind reports which single Family this Value holds.
func (v Value) Kind() Family { return v.kind }

// IsNil reports whether the value is the MsgPack nil family.
func (v Value) IsNil() bool { return v.kind == FamilyNil }

func NilValue() Value { return Value{kind: FamilyNil} }

func BoolValue(b bool) Value { return Value{kind: FamilyBool, b: b} }

func UintValue(u uint64) Value { return Value{kind: FamilyInt, u: u} }

func IntValue(i int64) Value {
	if i >= 0 {
		return Value{kind: FamilyInt, u: uint64(i)}
	}
	return Value{kind: FamilyInt, i: i, u: uint64(i)}
}

func Float32Value(f float32) Value { return Value{kind: FamilyFloat, f32: f} }

func Float64Value(f float64) Value { return Value{kind: FamilyFloat, f64: f, f32: float32(f)} }

func strValue(offset, size uint32) Value {
	return Value{kind: FamilyStr, offset: offset, size: size}
}

func binValue(offset, size uint32) Value {
	return Value{kind: FamilyBin, offset: offset, size: size}
}

func arrValue(offset, size uint32) Value {
	return Value{kind: FamilyArr, offset: offset, size: size}
}

func mapValue(offset, size uint32) Value {
	return Value{kind: FamilyMap, offset: offset, size: size}
}

func extValue(typ int8, offset, size uint32) Value {
	return Value{kind: FamilyExt, extTyp: typ, offset: offset, size: size}
}

// Bool returns the boolean payload and whether the Value actually holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == FamilyBool }

// Uint returns the value reinterpreted as uint64, for positive ints.
func (v Value) Uint() (uint64, bool) { return v.u, v.kind == FamilyInt }

// Int returns the value as a signed int64 (valid for both positive and
// negative encodings; positive values are simply u reinterpreted).
func (v Value) Int() (int64, bool) {
	if v.kind != FamilyInt {
		return 0, false
	}
	if v.i != 0 || v.u == 0 {
		return v.i, true
	}
	return int64(v.u), true
}

// Float32 returns the 32-bit float payload.
func (v Value) Float32() (float32, bool) { return v.f32, v.kind == FamilyFloat }

// Float64 returns the 64-bit float payload (widened from float32 if that is
// how it was encoded).
func (v Value) Float64() (float64, bool) {
	if v.kind != FamilyFloat {
		return 0, false
	}
	if v.f64 != 0 {
		return v.f64, true
	}
	return float64(v.f32), true
}

// Offset and Size expose the raw view coordinates for str/bin/arr/map/ext
// variants; most callers should use Str/Bin/Ext below instead.
func (v Value) Offset() uint32 { return v.offset }
func (v Value) Size() uint32   { return v.size }

// Str resolves a FamilyStr Value against the Buffer it was decoded from.
func (v Value) Str(buf *Buffer) (string, bool) {
	if v.kind != FamilyStr {
		return "", false
	}
	b, ok := buf.ReadAt(int64(v.offset), int(v.size))
	if !ok {
		return "", false
	}
	return string(b), true
}

// Bin resolves a FamilyBin Value against the Buffer it was decoded from.
// The returned slice aliases the Buffer's backing array; copy it if it must
// outlive the Buffer being reused.
func (v Value) Bin(buf *Buffer) ([]byte, bool) {
	if v.kind != FamilyBin {
		return nil, false
	}
	return buf.ReadAt(int64(v.offset), int(v.size))
}

// ExtType returns the extension type byte for a FamilyExt Value.
func (v Value) ExtType() (int8, bool) {
	if v.kind != FamilyExt {
		return 0, false
	}
	return v.extTyp, true
}

// ExtBytes resolves the raw extension payload.
func (v Value) ExtBytes(buf *Buffer) ([]byte, bool) {
	if v.kind != FamilyExt {
		return nil, false
	}
	return buf.ReadAt(int64(v.offset), int(v.size))
}

// UUID decodes an ExtUUID (-2) value using google/uuid, the one place this
// client gives the opaque Ext variant a concrete application type (see
// SPEC_FULL.md domain stack).
func (v Value) UUID(buf *Buffer) (uuid.UUID, bool) {
	if v.kind != FamilyExt || v.extTyp != ExtUUID {
		return uuid.UUID{}, false
	}
	raw, ok := buf.ReadAt(int64(v.offset), int(v.size))
	if !ok || len(raw) != 16 {
		return uuid.UUID{}, false
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// Arr/Map values carry offset+size over the *container's encoded bytes*,
// not its element count; the count is recomputed on demand from those bytes
// (arrElementCount in response.go) rather than stored on Value itself.

func (v Value) String() string {
	switch v.kind {
	case FamilyNil:
		return "nil"
	case FamilyBool:
		return fmt.Sprintf("%v", v.b)
	case FamilyInt:
		if i, ok := v.Int(); ok && v.i != 0 {
			return fmt.Sprintf("%d", i)
		}
		return fmt.Sprintf("%d", v.u)
	case FamilyFloat:
		f, _ := v.Float64()
		return fmt.Sprintf("%g", f)
	case FamilyStr:
		return fmt.Sprintf("str(offset=%d,size=%d)", v.offset, v.size)
	case FamilyBin:
		return fmt.Sprintf("bin(offset=%d,size=%d)", v.offset, v.size)
	case FamilyArr:
		return fmt.Sprintf("arr(offset=%d,size=%d)", v.offset, v.size)
	case FamilyMap:
		return fmt.Sprintf("map(offset=%d,size=%d)", v.offset, v.size)
	case FamilyExt:
		return fmt.Sprintf("ext(type=%d,offset=%d,size=%d)", v.extTyp, v.offset, v.size)
	default:
		return "ignored"
	}
}
