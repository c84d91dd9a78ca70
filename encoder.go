// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "math"

// Encoder writes MsgPack primitives, strings, binaries, arrays, maps and
// extensions onto a Buffer (spec.md §4.2). Numeric encoders always choose
// the narrowest MsgPack form that round-trips the value exactly, the way a
// hand-rolled wire encoder in this corpus (e.g. the teacher's
// writeCommandPacket family) keeps frames small without a general-purpose
// compression pass.
type Encoder struct {
	buf *Buffer
}

// NewEncoder wraps buf for writing. Multiple Encoders may share one Buffer
// sequentially (not concurrently; spec.md §5's single-writer rule applies).
func NewEncoder(buf *Buffer) *Encoder { return &Encoder{buf: buf} }

func (e *Encoder) put1(b byte) {
	e.buf.Append([]byte{b})
}

func (e *Encoder) putBE16(v uint16) {
	e.buf.Append([]byte{byte(v >> 8), byte(v)})
}

func (e *Encoder) putBE32(v uint32) {
	e.buf.Append([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (e *Encoder) putBE64(v uint64) {
	e.buf.Append([]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	})
}

// EncodeNil writes MsgPack nil.
func (e *Encoder) EncodeNil() { e.put1(mpNil) }

// EncodeBool writes MsgPack true/false.
func (e *Encoder) EncodeBool(b bool) {
	if b {
		e.put1(mpTrue)
	} else {
		e.put1(mpFalse)
	}
}

// EncodeUint writes the narrowest unsigned form: positive fixint, uint8,
// uint16, uint32 or uint64.
func (e *Encoder) EncodeUint(v uint64) {
	switch {
	case v <= mpPositiveFixintMax:
		e.put1(byte(v))
	case v <= math.MaxUint8:
		e.put1(mpUint8)
		e.put1(byte(v))
	case v <= math.MaxUint16:
		e.put1(mpUint16)
		e.putBE16(uint16(v))
	case v <= math.MaxUint32:
		e.put1(mpUint32)
		e.putBE32(uint32(v))
	default:
		e.put1(mpUint64)
		e.putBE64(v)
	}
}

// EncodeInt writes the narrowest signed form, falling back to EncodeUint
// for non-negative values (negative fixint covers -1..-32).
func (e *Encoder) EncodeInt(v int64) {
	if v >= 0 {
		e.EncodeUint(uint64(v))
		return
	}
	switch {
	case v >= -32:
		e.put1(byte(int8(v)))
	case v >= math.MinInt8:
		e.put1(mpInt8)
		e.put1(byte(int8(v)))
	case v >= math.MinInt16:
		e.put1(mpInt16)
		e.putBE16(uint16(int16(v)))
	case v >= math.MinInt32:
		e.put1(mpInt32)
		e.putBE32(uint32(int32(v)))
	default:
		e.put1(mpInt64)
		e.putBE64(uint64(v))
	}
}

// EncodeFloat32 writes a 32-bit MsgPack float.
func (e *Encoder) EncodeFloat32(f float32) {
	e.put1(mpFloat32)
	e.putBE32(math.Float32bits(f))
}

// EncodeFloat64 writes a 64-bit MsgPack float.
func (e *Encoder) EncodeFloat64(f float64) {
	e.put1(mpFloat64)
	e.putBE64(math.Float64bits(f))
}

// EncodeStr writes a MsgPack string (fixstr/str8/str16/str32).
func (e *Encoder) EncodeStr(s string) {
	n := len(s)
	switch {
	case n <= fixstrMax:
		e.put1(mpFixstrMask | byte(n))
	case n <= math.MaxUint8:
		e.put1(mpStr8)
		e.put1(byte(n))
	case n <= math.MaxUint16:
		e.put1(mpStr16)
		e.putBE16(uint16(n))
	default:
		e.put1(mpStr32)
		e.putBE32(uint32(n))
	}
	e.buf.Append([]byte(s))
}

// EncodeBin writes a MsgPack binary (bin8/16/32 — there is no fixbin form).
func (e *Encoder) EncodeBin(b []byte) {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		e.put1(mpBin8)
		e.put1(byte(n))
	case n <= math.MaxUint16:
		e.put1(mpBin16)
		e.putBE16(uint16(n))
	default:
		e.put1(mpBin32)
		e.putBE32(uint32(n))
	}
	e.buf.Append(b)
}

// EncodeArrayHeader writes the header for an array of exactly n elements;
// the caller is responsible for writing n values immediately after.
func (e *Encoder) EncodeArrayHeader(n int) {
	switch {
	case n <= fixarrayMax:
		e.put1(mpFixarrayMask | byte(n))
	case n <= math.MaxUint16:
		e.put1(mpArray16)
		e.putBE16(uint16(n))
	default:
		e.put1(mpArray32)
		e.putBE32(uint32(n))
	}
}

// EncodeMapHeader writes the header for a map of exactly n key/value pairs.
func (e *Encoder) EncodeMapHeader(n int) {
	switch {
	case n <= fixmapMax:
		e.put1(mpFixmapMask | byte(n))
	case n <= math.MaxUint16:
		e.put1(mpMap16)
		e.putBE16(uint16(n))
	default:
		e.put1(mpMap32)
		e.putBE32(uint32(n))
	}
}

// EncodeExt writes a fixed or variable-length extension frame, choosing the
// smallest compatible form (fixext1/2/4/8/16, or ext8/16/32).
func (e *Encoder) EncodeExt(typ int8, payload []byte) {
	n := len(payload)
	switch n {
	case 1:
		e.put1(mpFixext1)
	case 2:
		e.put1(mpFixext2)
	case 4:
		e.put1(mpFixext4)
	case 8:
		e.put1(mpFixext8)
	case 16:
		e.put1(mpFixext16)
	default:
		switch {
		case n <= math.MaxUint8:
			e.put1(mpExt8)
			e.put1(byte(n))
		case n <= math.MaxUint16:
			e.put1(mpExt16)
			e.putBE16(uint16(n))
		default:
			e.put1(mpExt32)
			e.putBE32(uint32(n))
		}
	}
	e.put1(byte(typ))
	e.buf.Append(payload)
}

// EncodeUUID writes id as an ExtUUID (-2) extension, the typed counterpart
// to Value.UUID.
func (e *Encoder) EncodeUUID(id [16]byte) { e.EncodeExt(ExtUUID, id[:]) }

// ReserveArrayHeader reserves space for an array header whose element
// count isn't known up front (incremental composite building, spec.md
// §4.2's "reserve header + patch header on close"). It always reserves the
// widest (32-bit) form so the patch can never need more room than was
// reserved; PatchArrayHeader overwrites it once the count is known.
func (e *Encoder) ReserveArrayHeader() Cursor {
	c := e.buf.SaveCursor()
	e.put1(mpArray32)
	e.buf.Append([]byte{0, 0, 0, 0})
	return c
}

// PatchArrayHeader fills in the element count for a header previously
// reserved with ReserveArrayHeader.
func (e *Encoder) PatchArrayHeader(c Cursor, n uint32) {
	e.buf.PatchAt(c, []byte{mpArray32, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}

// ReserveMapHeader is ReserveArrayHeader's map-header counterpart.
func (e *Encoder) ReserveMapHeader() Cursor {
	c := e.buf.SaveCursor()
	e.put1(mpMap32)
	e.buf.Append([]byte{0, 0, 0, 0})
	return c
}

// PatchMapHeader fills in the pair count for a header previously reserved
// with ReserveMapHeader.
func (e *Encoder) PatchMapHeader(c Cursor, n uint32) {
	e.buf.PatchAt(c, []byte{mpMap32, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
