// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "encoding/binary"

// Error object sub-keys within one entry of an error stack (spec.md §4.4's
// "error" key).
const (
	errKeyType    = 0x00
	errKeyFile    = 0x01
	errKeyLine    = 0x02
	errKeyMessage = 0x03
	errKeyErrno   = 0x04
	errKeyErrcode = 0x05
)

// ResponseHeader is spec.md §3's {code, sync, schema_version}.
type ResponseHeader struct {
	Code          uint32
	Sync          uint64
	SchemaVersion uint64
}

// ColumnMap is one metadata entry (spec.md §3), describing a single result
// column. Field values are zero-copy string views into the Connection's
// input Buffer; resolve them with Value.Str once, since the Buffer they
// point into is reused after the Response is dropped.
type ColumnMap struct {
	FieldName       Value
	FieldType       Value
	Collation       Value
	Span            Value
	IsNullable      bool
	IsAutoincrement bool
}

// Metadata is spec.md §3's {dimension, column_maps[]}.
type Metadata struct {
	Dimension uint32
	Columns   []ColumnMap
}

// SQLInfo is the "sql_info" body key: {row_count, autoincrement_ids}.
type SQLInfo struct {
	RowCount         uint64
	HasRowCount      bool
	AutoincrementIDs []uint64
}

// SQLData is the tabular/SQL variant of a response body (spec.md §3/§4.4).
type SQLData struct {
	Metadata     *Metadata
	Info         *SQLInfo
	StmtID       uint64
	HasStmtID    bool
	BindCount    uint64
	HasBindCount bool
}

// ResponseBody is spec.md §3's {data?, error_stack?}.
type ResponseBody struct {
	Data      Value // FamilyArr view over the top-level tuple list, if present
	HasData   bool
	Dimension uint32 // number of top-level array elements in Data
	SQL       *SQLData
	Errors    ErrorStack
}

// Response is a fully decoded reply frame.
type Response struct {
	Header ResponseHeader
	Body   ResponseBody
}

// DecodeFrameLength reads the fixed 5-byte length placeholder that opens
// every frame (spec.md §4.3/§6: a uint32-in-5-byte MsgPack form). It does
// not use the generic Decoder, since the placeholder's encoding is fixed
// by the wire format rather than "narrowest form" — a conforming peer
// always emits exactly 0xce followed by 4 big-endian length bytes.
func DecodeFrameLength(buf *Buffer) (length uint32, res ReadResult) {
	raw, ok := buf.Read(5)
	if !ok {
		return 0, ReadNeedMore
	}
	if raw[0] != mpUint32 {
		return 0, ReadBadMsgpack
	}
	buf.Consume(5)
	return binary.BigEndian.Uint32(raw[1:5]), ReadSuccess
}

// DecodeHeader parses the header map (spec.md §4.4), tolerating unknown
// keys.
func DecodeHeader(dec *Decoder) (ResponseHeader, ReadResult) {
	var codeV, syncV, schemaV Value
	r := newKeyedMapReader(map[uint64]*Value{
		iprotoRequestType:   &codeV,
		iprotoSync:          &syncV,
		iprotoSchemaVersion: &schemaV,
	})
	if res := dec.DecodeWith(r); res != ReadSuccess {
		return ResponseHeader{}, res
	}
	var h ResponseHeader
	if u, ok := codeV.Uint(); ok {
		h.Code = uint32(u)
	}
	if u, ok := syncV.Uint(); ok {
		h.Sync = u
	}
	if u, ok := schemaV.Uint(); ok {
		h.SchemaVersion = u
	}
	return h, ReadSuccess
}

// DecodeBody parses the body map and, based on the header's code, returns
// either populated Data/SQL fields or a populated Errors stack (spec.md
// §4.4). code == 0 means success; any other value is a server error code.
func DecodeBody(dec *Decoder, buf *Buffer, code uint32) (ResponseBody, ReadResult) {
	var dataV, metaV, sqlInfoV, stmtIDV, bindCountV, error24V, errorV Value
	r := newKeyedMapReader(map[uint64]*Value{
		iprotoData:      &dataV,
		iprotoMetadata:  &metaV,
		iprotoSQLInfo:   &sqlInfoV,
		iprotoStmtID:    &stmtIDV,
		iprotoBindCount: &bindCountV,
		iprotoError24:   &error24V,
		iprotoError:     &errorV,
	})
	if res := dec.DecodeWith(r); res != ReadSuccess {
		return ResponseBody{}, res
	}

	var body ResponseBody
	if dataV.Kind() == FamilyArr {
		body.Data = dataV
		body.HasData = true
		body.Dimension = arrElementCount(buf, dataV)
	}
	if metaV.Kind() == FamilyArr {
		meta, res := decodeMetadata(buf, metaV)
		if res != ReadSuccess {
			return ResponseBody{}, res
		}
		if body.SQL == nil {
			body.SQL = &SQLData{}
		}
		body.SQL.Metadata = meta
	}
	if sqlInfoV.Kind() == FamilyMap {
		info, res := decodeSQLInfo(buf, sqlInfoV)
		if res != ReadSuccess {
			return ResponseBody{}, res
		}
		if body.SQL == nil {
			body.SQL = &SQLData{}
		}
		body.SQL.Info = info
	}
	if u, ok := stmtIDV.Uint(); ok {
		if body.SQL == nil {
			body.SQL = &SQLData{}
		}
		body.SQL.StmtID = u
		body.SQL.HasStmtID = true
	}
	if u, ok := bindCountV.Uint(); ok {
		if body.SQL == nil {
			body.SQL = &SQLData{}
		}
		body.SQL.BindCount = u
		body.SQL.HasBindCount = true
	}

	if code != iprotoOK {
		switch {
		case errorV.Kind() == FamilyArr:
			stack, res := decodeErrorStack(buf, errorV, code)
			if res != ReadSuccess {
				return ResponseBody{}, res
			}
			body.Errors = stack
		case errorV.Kind() == FamilyMap:
			e, res := decodeErrorEntry(buf, errorV, code)
			if res != ReadSuccess {
				return ResponseBody{}, res
			}
			body.Errors = ErrorStack{e}
		case error24V.Kind() == FamilyStr:
			msg, _ := error24V.Str(buf)
			body.Errors = ErrorStack{{Msg: msg, Errcode: code}}
		default:
			body.Errors = ErrorStack{{Msg: "unknown server error", Errcode: code}}
		}
	}
	return body, ReadSuccess
}

// arrElementCount re-walks a previously captured array Value's raw bytes to
// recover its element count; Value itself only stores offset+size (matching
// original_source's ArrValue layout), so dimension bookkeeping is computed
// on demand rather than carried on every Value.
func arrElementCount(buf *Buffer, v Value) uint32 {
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return 0
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess || s.fam != FamilyArr {
		return 0
	}
	return s.count
}

func decodeMetadata(buf *Buffer, v Value) (*Metadata, ReadResult) {
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return nil, ReadBadMsgpack
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess || s.fam != FamilyArr {
		return nil, ReadBadMsgpack
	}
	cols := make([]ColumnMap, 0, s.count)
	off := s.headerLen
	base := int64(v.Offset())
	for i := uint32(0); i < s.count; i++ {
		sub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		col, res := decodeColumnMap(buf, raw[off:off+sub.length], sub, base+int64(off))
		if res != ReadSuccess {
			return nil, res
		}
		cols = append(cols, col)
		off += sub.length
	}
	return &Metadata{Dimension: uint32(len(cols)), Columns: cols}, ReadSuccess
}

func decodeColumnMap(buf *Buffer, data []byte, s scanned, baseOffset int64) (ColumnMap, ReadResult) {
	if s.fam != FamilyMap {
		return ColumnMap{}, ReadWrongType
	}
	var col ColumnMap
	off := s.headerLen
	for i := uint32(0); i < s.count; i++ {
		keySub, res := scanValue(data[off:], 0, 0)
		if res != ReadSuccess {
			return ColumnMap{}, res
		}
		key := captureValue(data[off:off+keySub.length], keySub, baseOffset+int64(off))
		off += keySub.length
		valSub, res := scanValue(data[off:], 0, 0)
		if res != ReadSuccess {
			return ColumnMap{}, res
		}
		val := captureValue(data[off:off+valSub.length], valSub, baseOffset+int64(off))
		off += valSub.length

		k, _ := key.Uint()
		switch k {
		case fieldName:
			col.FieldName = val
		case fieldType:
			col.FieldType = val
		case fieldColl:
			col.Collation = val
		case fieldSpan:
			col.Span = val
		case fieldIsNullable:
			col.IsNullable, _ = val.Bool()
		case fieldIsAutoincrement:
			col.IsAutoincrement, _ = val.Bool()
		}
	}
	return col, ReadSuccess
}

func decodeSQLInfo(buf *Buffer, v Value) (*SQLInfo, ReadResult) {
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return nil, ReadBadMsgpack
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess || s.fam != FamilyMap {
		return nil, ReadBadMsgpack
	}
	info := &SQLInfo{}
	off := s.headerLen
	for i := uint32(0); i < s.count; i++ {
		keySub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		key := captureValue(raw[off:off+keySub.length], keySub, int64(v.Offset())+int64(off))
		off += keySub.length
		valSub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		val := captureValue(raw[off:off+valSub.length], valSub, int64(v.Offset())+int64(off))
		off += valSub.length

		k, _ := key.Uint()
		switch k {
		case sqlInfoRowCount:
			if u, ok := val.Uint(); ok {
				info.RowCount = u
				info.HasRowCount = true
			}
		case sqlInfoAutoincrementIDs:
			ids, res := decodeUintArray(buf, val)
			if res != ReadSuccess {
				return nil, res
			}
			info.AutoincrementIDs = ids
		}
	}
	return info, ReadSuccess
}

func decodeUintArray(buf *Buffer, v Value) ([]uint64, ReadResult) {
	if v.Kind() != FamilyArr {
		return nil, ReadSuccess
	}
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return nil, ReadBadMsgpack
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess {
		return nil, res
	}
	out := make([]uint64, 0, s.count)
	off := s.headerLen
	for i := uint32(0); i < s.count; i++ {
		sub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		val := captureValue(raw[off:off+sub.length], sub, int64(v.Offset())+int64(off))
		if u, ok := val.Uint(); ok {
			out = append(out, u)
		}
		off += sub.length
	}
	return out, ReadSuccess
}

func decodeErrorStack(buf *Buffer, v Value, code uint32) (ErrorStack, ReadResult) {
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return nil, ReadBadMsgpack
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess || s.fam != FamilyArr {
		return nil, ReadBadMsgpack
	}
	stack := make(ErrorStack, 0, s.count)
	off := s.headerLen
	base := int64(v.Offset())
	for i := uint32(0); i < s.count; i++ {
		sub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		entryVal := captureValue(raw[off:off+sub.length], sub, base+int64(off))
		e, res := decodeErrorEntry(buf, entryVal, code)
		if res != ReadSuccess {
			return nil, res
		}
		stack = append(stack, e)
		off += sub.length
	}
	return stack, ReadSuccess
}

func decodeErrorEntry(buf *Buffer, v Value, code uint32) (*Error, ReadResult) {
	if v.Kind() != FamilyMap {
		return &Error{Errcode: code, Msg: "malformed error entry"}, ReadSuccess
	}
	raw, ok := buf.ReadAt(int64(v.Offset()), int(v.Size()))
	if !ok {
		return nil, ReadBadMsgpack
	}
	s, res := scanValue(raw, 0, 0)
	if res != ReadSuccess {
		return nil, res
	}
	e := &Error{Errcode: code}
	off := s.headerLen
	base := int64(v.Offset())
	for i := uint32(0); i < s.count; i++ {
		keySub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		key := captureValue(raw[off:off+keySub.length], keySub, base+int64(off))
		off += keySub.length
		valSub, res := scanValue(raw[off:], 0, 0)
		if res != ReadSuccess {
			return nil, res
		}
		val := captureValue(raw[off:off+valSub.length], valSub, base+int64(off))
		off += valSub.length

		k, _ := key.Uint()
		switch k {
		case errKeyType:
			e.TypeName, _ = val.Str(buf)
		case errKeyFile:
			e.File, _ = val.Str(buf)
		case errKeyMessage:
			e.Msg, _ = val.Str(buf)
		case errKeyErrno:
			if u, ok := val.Uint(); ok {
				e.SavedErrno = int(u)
			}
		case errKeyErrcode:
			if u, ok := val.Uint(); ok {
				e.Errcode = uint32(u)
			}
		}
	}
	return e, ReadSuccess
}
