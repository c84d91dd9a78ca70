// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "math"

// ReadResult is a bitmask over the decoder's terminal outcomes (spec.md
// §4.2). The zero value is success. Multiple bits can be set at once when
// useful for diagnostics, but callers normally only care which single bit
// dominates.
type ReadResult uint32

const ReadSuccess ReadResult = 0

const (
	ReadNeedMore ReadResult = 1 << iota
	ReadBadMsgpack
	ReadWrongType
	ReadMaxDepthReached
	ReadAbortedByUser
)

func (r ReadResult) String() string {
	if r == ReadSuccess {
		return "success"
	}
	names := []struct {
		bit  ReadResult
		name string
	}{
		{ReadNeedMore, "need-more"},
		{ReadBadMsgpack, "bad-msgpack"},
		{ReadWrongType, "wrong-type"},
		{ReadMaxDepthReached, "max-depth-reached"},
		{ReadAbortedByUser, "aborted-by-user"},
	}
	out := ""
	for _, n := range names {
		if r&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// DefaultMaxDepth is the default nesting ceiling guarding against
// adversarial deeply-nested input (spec.md §4.2).
const DefaultMaxDepth = 128

// Reader is the visitor a caller supplies to Decoder.DecodeWith, describing
// the shape it expects at the current position (spec.md §4.2). Accept
// returns the bitmask of families Reader is willing to see; DecodeWith
// returns ReadWrongType, consuming nothing, when the top-level value's
// family is not in it. Readers handed out for nested values (ElementReader,
// KeyReader, ValueReader) are dispatched without that check: a nested value
// whose family has no matching hook on its Reader is skipped. Reader implementations
// additionally implement one or more of the *Reader hook interfaces below
// for the families they accept — the Decoder type-asserts for the relevant
// one once it has determined the actual family on the wire.
type Reader interface {
	Accept() Family
}

type NilReader interface {
	Reader
	OnNil() ReadResult
}

type BoolReader interface {
	Reader
	OnBool(bool) ReadResult
}

type IntReader interface {
	Reader
	OnInt(int64) ReadResult
}

type UintReader interface {
	Reader
	OnUint(uint64) ReadResult
}

type Float32Reader interface {
	Reader
	OnFloat32(float32) ReadResult
}

type Float64Reader interface {
	Reader
	OnFloat64(float64) ReadResult
}

type StrReader interface {
	Reader
	OnStr(Value) ReadResult
}

type BinReader interface {
	Reader
	OnBin(Value) ReadResult
}

type ExtReader interface {
	Reader
	OnExt(typ int8, v Value) ReadResult
}

// ArrReader decodes an array of known or discovered length. ElementReader
// is asked, once per element in order, for the Reader to use for that
// element; returning nil skips the element generically (decoded into a
// throwaway Value).
type ArrReader interface {
	Reader
	OnArrayHeader(count uint32) ReadResult
	ElementReader(i uint32) Reader
}

// MapReader decodes a map of known keys (spec.md §4.2's "map of known
// keys, each with its own sub-reader"). KeyReader decodes one key at a
// time; ValueReader is then asked for the Reader to use for that key's
// value, given the decoded key — returning nil skips the value generically,
// which is how "unknown keys are skipped" (spec.md §4.4) is expressed.
type MapReader interface {
	Reader
	OnMapHeader(count uint32) ReadResult
	KeyReader() Reader
	ValueReader(key Value) Reader
}

// ValueCapturer is a shortcut Reader that wants the decoded Value verbatim
// regardless of family — Decoder.dispatch checks for it before any
// family-specific hook interface, so it works uniformly for scalars and
// for composites (whose offset+size view is all ValueCapturer needs; it
// does not descend into array/map elements).
type ValueCapturer interface {
	Reader
	OnValue(Value) ReadResult
}

// valueCapture is the concrete ValueCapturer used throughout the Response
// Decoder and Request body parsing: point it at a destination and decode
// whatever shows up, deferring interpretation to the caller via the
// Value's own accessors.
type valueCapture struct {
	accept Family
	dst    *Value
}

func capture(dst *Value) Reader { return &valueCapture{accept: FamilyAny, dst: dst} }

func captureOf(accept Family, dst *Value) Reader { return &valueCapture{accept: accept, dst: dst} }

func (c *valueCapture) Accept() Family {
	if c.accept == 0 {
		return FamilyAny
	}
	return c.accept
}

func (c *valueCapture) OnValue(v Value) ReadResult {
	*c.dst = v
	return ReadSuccess
}

// genericReader accepts anything and does nothing with it; used to skip a
// value the caller doesn't care about.
type genericReader struct{}

func (genericReader) Accept() Family { return FamilyAny }

var skipReader Reader = genericReader{}

// Decoder consumes a Buffer against caller-supplied Readers (spec.md §4.2).
// Every DecodeWith call either consumes exactly one whole MsgPack value and
// returns ReadSuccess (possibly OR'd with ReadAbortedByUser if a hook asked
// to stop), or consumes nothing and returns a failure bit — decoding is
// implemented as a length pre-scan over the already-buffered bytes followed
// by a consuming dispatch pass, which is what makes "need-more consumes
// zero bytes" trivial to guarantee even for nested composites.
type Decoder struct {
	buf      *Buffer
	maxDepth int
}

// NewDecoder wraps buf for reading, with the default max nesting depth.
func NewDecoder(buf *Buffer) *Decoder { return &Decoder{buf: buf, maxDepth: DefaultMaxDepth} }

// SetMaxDepth overrides the nesting ceiling (0 disables the limit; do not
// do this against untrusted input).
func (d *Decoder) SetMaxDepth(n int) { d.maxDepth = n }

// scanned describes one fully-scanned (but not yet dispatched) MsgPack
// value: its family, total encoded length, and — for composites — the
// element/pair count and the offset where elements begin.
type scanned struct {
	fam       Family
	length    int // total bytes including header
	headerLen int
	count     uint32 // element count for arr, pair count for map
	extTyp    int8
}

// scanValue determines whether data begins with one complete MsgPack value,
// without consuming or interpreting payload bytes beyond what's needed to
// compute lengths. It never returns a positive result that extends past
// len(data).
func scanValue(data []byte, depth, maxDepth int) (scanned, ReadResult) {
	if maxDepth > 0 && depth > maxDepth {
		return scanned{}, ReadMaxDepthReached
	}
	if len(data) == 0 {
		return scanned{}, ReadNeedMore
	}
	tb := data[0]
	switch {
	case tb <= mpPositiveFixintMax || tb >= mpNegativeFixintMin:
		return scanned{fam: FamilyInt, length: 1}, ReadSuccess
	case tb == mpNil:
		return scanned{fam: FamilyNil, length: 1}, ReadSuccess
	case tb == mpFalse || tb == mpTrue:
		return scanned{fam: FamilyBool, length: 1}, ReadSuccess
	case tb&0xf0 == mpFixmapMask:
		return scanComposite(data, FamilyMap, uint32(tb&0x0f), 1, depth, maxDepth)
	case tb&0xf0 == mpFixarrayMask:
		return scanComposite(data, FamilyArr, uint32(tb&0x0f), 1, depth, maxDepth)
	case tb&0xe0 == mpFixstrMask:
		return scanBytesFamily(data, FamilyStr, int(tb&0x1f), 1)
	case tb == mpBin8:
		return scanLenPrefixed(data, FamilyBin, 1, 1)
	case tb == mpBin16:
		return scanLenPrefixed(data, FamilyBin, 2, 1)
	case tb == mpBin32:
		return scanLenPrefixed(data, FamilyBin, 4, 1)
	case tb == mpExt8:
		return scanExt(data, 1, 1)
	case tb == mpExt16:
		return scanExt(data, 2, 1)
	case tb == mpExt32:
		return scanExt(data, 4, 1)
	case tb == mpFloat32:
		return scanFixed(data, FamilyFloat, 4)
	case tb == mpFloat64:
		return scanFixed(data, FamilyFloat, 8)
	case tb == mpUint8:
		return scanFixed(data, FamilyInt, 1)
	case tb == mpUint16:
		return scanFixed(data, FamilyInt, 2)
	case tb == mpUint32:
		return scanFixed(data, FamilyInt, 4)
	case tb == mpUint64:
		return scanFixed(data, FamilyInt, 8)
	case tb == mpInt8:
		return scanFixed(data, FamilyInt, 1)
	case tb == mpInt16:
		return scanFixed(data, FamilyInt, 2)
	case tb == mpInt32:
		return scanFixed(data, FamilyInt, 4)
	case tb == mpInt64:
		return scanFixed(data, FamilyInt, 8)
	case tb == mpFixext1:
		return scanFixext(data, 1)
	case tb == mpFixext2:
		return scanFixext(data, 2)
	case tb == mpFixext4:
		return scanFixext(data, 4)
	case tb == mpFixext8:
		return scanFixext(data, 8)
	case tb == mpFixext16:
		return scanFixext(data, 16)
	case tb == mpStr8:
		return scanLenPrefixed(data, FamilyStr, 1, 1)
	case tb == mpStr16:
		return scanLenPrefixed(data, FamilyStr, 2, 1)
	case tb == mpStr32:
		return scanLenPrefixed(data, FamilyStr, 4, 1)
	case tb == mpArray16:
		return scanContainerLen(data, FamilyArr, 2, 1, depth, maxDepth)
	case tb == mpArray32:
		return scanContainerLen(data, FamilyArr, 4, 1, depth, maxDepth)
	case tb == mpMap16:
		return scanContainerLen(data, FamilyMap, 2, 1, depth, maxDepth)
	case tb == mpMap32:
		return scanContainerLen(data, FamilyMap, 4, 1, depth, maxDepth)
	default:
		return scanned{}, ReadBadMsgpack
	}
}

func beUint(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}

func scanFixed(data []byte, fam Family, payload int) (scanned, ReadResult) {
	if len(data) < 1+payload {
		return scanned{}, ReadNeedMore
	}
	return scanned{fam: fam, length: 1 + payload, headerLen: 1}, ReadSuccess
}

func scanBytesFamily(data []byte, fam Family, n, headerLen int) (scanned, ReadResult) {
	if len(data) < headerLen+n {
		return scanned{}, ReadNeedMore
	}
	return scanned{fam: fam, length: headerLen + n, headerLen: headerLen, count: uint32(n)}, ReadSuccess
}

func scanLenPrefixed(data []byte, fam Family, lenBytes, tbLen int) (scanned, ReadResult) {
	if len(data) < tbLen+lenBytes {
		return scanned{}, ReadNeedMore
	}
	n := int(beUint(data[tbLen : tbLen+lenBytes]))
	return scanBytesFamily(data, fam, n, tbLen+lenBytes)
}

func scanExt(data []byte, lenBytes, tbLen int) (scanned, ReadResult) {
	if len(data) < tbLen+lenBytes+1 {
		return scanned{}, ReadNeedMore
	}
	n := int(beUint(data[tbLen : tbLen+lenBytes]))
	headerLen := tbLen + lenBytes + 1
	if len(data) < headerLen+n {
		return scanned{}, ReadNeedMore
	}
	typ := int8(data[tbLen+lenBytes])
	return scanned{fam: FamilyExt, length: headerLen + n, headerLen: headerLen, extTyp: typ}, ReadSuccess
}

func scanFixext(data []byte, n int) (scanned, ReadResult) {
	if len(data) < 2+n {
		return scanned{}, ReadNeedMore
	}
	typ := int8(data[1])
	return scanned{fam: FamilyExt, length: 2 + n, headerLen: 2, extTyp: typ}, ReadSuccess
}

// scanComposite handles fixmap/fixarray whose count is embedded in the type
// byte itself (headerLen bytes already known).
func scanComposite(data []byte, fam Family, count uint32, headerLen, depth, maxDepth int) (scanned, ReadResult) {
	return scanContainerBody(data, fam, count, headerLen, depth, maxDepth)
}

// scanContainerLen handles array16/32, map16/32 whose count follows the type
// byte as a big-endian integer of lenBytes bytes.
func scanContainerLen(data []byte, fam Family, lenBytes, tbLen, depth, maxDepth int) (scanned, ReadResult) {
	if len(data) < tbLen+lenBytes {
		return scanned{}, ReadNeedMore
	}
	count := uint32(beUint(data[tbLen : tbLen+lenBytes]))
	return scanContainerBody(data, fam, count, tbLen+lenBytes, depth, maxDepth)
}

// scanContainerBody walks count (or 2*count, for maps) nested values,
// purely to compute the container's total encoded length.
func scanContainerBody(data []byte, fam Family, count uint32, headerLen int, depth, maxDepth int) (scanned, ReadResult) {
	nvalues := uint64(count)
	if fam == FamilyMap {
		nvalues *= 2
	}
	off := headerLen
	for i := uint64(0); i < nvalues; i++ {
		if off > len(data) {
			return scanned{}, ReadNeedMore
		}
		sub, res := scanValue(data[off:], depth+1, maxDepth)
		if res != ReadSuccess {
			return scanned{}, res
		}
		off += sub.length
	}
	return scanned{fam: fam, length: off, headerLen: headerLen, count: count}, ReadSuccess
}

// decodeScalar turns a fully-available scanned scalar value into a Value.
// Composite families (arr/map/ext) are handled by their own call sites
// since they need offset bookkeeping relative to the Buffer, not just data.
func decodeScalar(data []byte, s scanned) Value {
	tb := data[0]
	switch s.fam {
	case FamilyNil:
		return NilValue()
	case FamilyBool:
		return BoolValue(tb == mpTrue)
	case FamilyInt:
		return decodeIntScalar(data, tb)
	case FamilyFloat:
		if tb == mpFloat32 {
			bits := uint32(beUint(data[1:5]))
			return Float32Value(math.Float32frombits(bits))
		}
		bits := beUint(data[1:9])
		return Float64Value(math.Float64frombits(bits))
	default:
		return Value{}
	}
}

func decodeIntScalar(data []byte, tb byte) Value {
	switch {
	case tb <= mpPositiveFixintMax:
		return UintValue(uint64(tb))
	case tb >= mpNegativeFixintMin:
		return IntValue(int64(int8(tb)))
	case tb == mpUint8:
		return UintValue(uint64(data[1]))
	case tb == mpUint16:
		return UintValue(beUint(data[1:3]))
	case tb == mpUint32:
		return UintValue(beUint(data[1:5]))
	case tb == mpUint64:
		return UintValue(beUint(data[1:9]))
	case tb == mpInt8:
		return IntValue(int64(int8(data[1])))
	case tb == mpInt16:
		return IntValue(int64(int16(beUint(data[1:3]))))
	case tb == mpInt32:
		return IntValue(int64(int32(beUint(data[1:5]))))
	case tb == mpInt64:
		return IntValue(int64(beUint(data[1:9])))
	default:
		return Value{}
	}
}

// DecodeWith is the visitor entry point (spec.md §4.2). It peeks, pre-scans
// for a complete value, checks the family against r.Accept(), and on match
// dispatches to the matching hook interface (recursing for composites).
// Guarantees: on ReadSuccess exactly one value is consumed; on
// ReadNeedMore/ReadBadMsgpack/ReadWrongType/ReadMaxDepthReached nothing is
// consumed except as noted for ReadBadMsgpack (spec.md §4.2's promise —
// the Connection must be torn down after a bad-msgpack result regardless).
func (d *Decoder) DecodeWith(r Reader) ReadResult {
	avail, _ := d.buf.Read(d.buf.Size())
	s, res := scanValue(avail, 0, d.maxDepth)
	if res != ReadSuccess {
		return res
	}
	if !r.Accept().Any(s.fam) {
		return ReadWrongType
	}
	baseOffset := d.buf.ReadPos()
	dispatchRes := d.dispatch(avail[:s.length], s, baseOffset, r, 0)
	d.buf.Consume(s.length)
	return dispatchRes
}

// dispatch interprets already-fully-available bytes (data, length s.length)
// against r, invoking hooks. baseOffset is data[0]'s absolute Buffer
// position, used to build offset+size Values for str/bin/arr/map/ext.
func (d *Decoder) dispatch(data []byte, s scanned, baseOffset int64, r Reader, depth int) ReadResult {
	if h, ok := r.(ValueCapturer); ok {
		return h.OnValue(captureValue(data, s, baseOffset))
	}
	switch s.fam {
	case FamilyNil:
		if h, ok := r.(NilReader); ok {
			return h.OnNil()
		}
		return ReadSuccess
	case FamilyBool:
		v := decodeScalar(data, s)
		if h, ok := r.(BoolReader); ok {
			b, _ := v.Bool()
			return h.OnBool(b)
		}
		return ReadSuccess
	case FamilyInt:
		v := decodeScalar(data, s)
		if h, ok := r.(UintReader); ok {
			if u, isU := v.Uint(); isU && v.i == 0 {
				return h.OnUint(u)
			}
		}
		if h, ok := r.(IntReader); ok {
			i, _ := v.Int()
			return h.OnInt(i)
		}
		return ReadSuccess
	case FamilyFloat:
		v := decodeScalar(data, s)
		tb := data[0]
		if tb == mpFloat32 {
			if h, ok := r.(Float32Reader); ok {
				f, _ := v.Float32()
				return h.OnFloat32(f)
			}
		}
		if h, ok := r.(Float64Reader); ok {
			f, _ := v.Float64()
			return h.OnFloat64(f)
		}
		return ReadSuccess
	case FamilyStr:
		val := strValue(uint32(baseOffset)+uint32(s.headerLen), uint32(s.count))
		if h, ok := r.(StrReader); ok {
			return h.OnStr(val)
		}
		return ReadSuccess
	case FamilyBin:
		val := binValue(uint32(baseOffset)+uint32(s.headerLen), uint32(s.count))
		if h, ok := r.(BinReader); ok {
			return h.OnBin(val)
		}
		return ReadSuccess
	case FamilyExt:
		payload := data[s.headerLen:]
		val := extValue(s.extTyp, uint32(baseOffset)+uint32(s.headerLen), uint32(len(payload)))
		if h, ok := r.(ExtReader); ok {
			return h.OnExt(s.extTyp, val)
		}
		return ReadSuccess
	case FamilyArr:
		return d.dispatchArr(data, s, baseOffset, r, depth)
	case FamilyMap:
		return d.dispatchMap(data, s, baseOffset, r, depth)
	default:
		return ReadBadMsgpack
	}
}

func (d *Decoder) dispatchArr(data []byte, s scanned, baseOffset int64, r Reader, depth int) ReadResult {
	h, ok := r.(ArrReader)
	if !ok {
		return ReadSuccess
	}
	if res := h.OnArrayHeader(s.count); res != ReadSuccess {
		return res
	}
	off := s.headerLen
	for i := uint32(0); i < s.count; i++ {
		sub, _ := scanValue(data[off:], depth+1, d.maxDepth)
		elemReader := h.ElementReader(i)
		if elemReader == nil {
			elemReader = skipReader
		}
		res := d.dispatch(data[off:off+sub.length], sub, baseOffset+int64(off), elemReader, depth+1)
		if res&ReadAbortedByUser != 0 {
			return res
		}
		off += sub.length
	}
	return ReadSuccess
}

func (d *Decoder) dispatchMap(data []byte, s scanned, baseOffset int64, r Reader, depth int) ReadResult {
	h, ok := r.(MapReader)
	if !ok {
		return ReadSuccess
	}
	if res := h.OnMapHeader(s.count); res != ReadSuccess {
		return res
	}
	off := s.headerLen
	for i := uint32(0); i < s.count; i++ {
		keySub, _ := scanValue(data[off:], depth+1, d.maxDepth)
		keyReader := h.KeyReader()
		if keyReader == nil {
			keyReader = skipReader
		}
		keyVal := captureValue(data[off:off+keySub.length], keySub, baseOffset+int64(off))
		if res := d.dispatch(data[off:off+keySub.length], keySub, baseOffset+int64(off), keyReader, depth+1); res&ReadAbortedByUser != 0 {
			return res
		}
		off += keySub.length

		valSub, _ := scanValue(data[off:], depth+1, d.maxDepth)
		valReader := h.ValueReader(keyVal)
		if valReader == nil {
			valReader = skipReader
		}
		if res := d.dispatch(data[off:off+valSub.length], valSub, baseOffset+int64(off), valReader, depth+1); res&ReadAbortedByUser != 0 {
			return res
		}
		off += valSub.length
	}
	return ReadSuccess
}

// captureValue materializes a Value for scalar families directly (used to
// hand a map reader its decoded key even when the reader itself doesn't
// implement the matching hook interface).
func captureValue(data []byte, s scanned, baseOffset int64) Value {
	switch s.fam {
	case FamilyStr:
		return strValue(uint32(baseOffset)+uint32(s.headerLen), uint32(s.count))
	case FamilyBin:
		return binValue(uint32(baseOffset)+uint32(s.headerLen), uint32(s.count))
	case FamilyArr:
		return arrValue(uint32(baseOffset), uint32(s.length))
	case FamilyMap:
		return mapValue(uint32(baseOffset), uint32(s.length))
	case FamilyExt:
		return extValue(s.extTyp, uint32(baseOffset)+uint32(s.headerLen), uint32(s.length-s.headerLen))
	default:
		return decodeScalar(data, s)
	}
}

// DecodeAny decodes whatever is next into a generic Value, without
// requiring the caller to supply a Reader — convenient for tuple payloads
// the spec says are "left as (offset,size) views" (spec.md §4.4).
func (d *Decoder) DecodeAny() (Value, ReadResult) {
	avail, _ := d.buf.Read(d.buf.Size())
	s, res := scanValue(avail, 0, d.maxDepth)
	if res != ReadSuccess {
		return Value{}, res
	}
	baseOffset := d.buf.ReadPos()
	v := captureValue(avail[:s.length], s, baseOffset)
	d.buf.Consume(s.length)
	return v, ReadSuccess
}

// SkipValue advances past one complete value without producing a Value,
// used for MsgPack "unknown keys are skipped" semantics (spec.md §4.4).
func (d *Decoder) SkipValue() ReadResult {
	avail, _ := d.buf.Read(d.buf.Size())
	s, res := scanValue(avail, 0, d.maxDepth)
	if res != ReadSuccess {
		return res
	}
	d.buf.Consume(s.length)
	return ReadSuccess
}
