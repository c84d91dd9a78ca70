// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"crypto/sha1"
)

// RequestEncoder builds protocol frames onto a Buffer (spec.md §4.3). Every
// frame is a fixed 5-byte length placeholder, a header map, and a body map;
// the placeholder is patched with the real length once the body is
// complete, the same reserve-then-patch trick the Buffer's
// SaveCursor/PatchAt pair exists for.
type RequestEncoder struct {
	buf *Buffer
	enc *Encoder
}

func NewRequestEncoder(buf *Buffer) *RequestEncoder {
	return &RequestEncoder{buf: buf, enc: NewEncoder(buf)}
}

// beginFrame reserves the length placeholder and writes the header map,
// returning the placeholder cursor for endFrame to patch.
func (r *RequestEncoder) beginFrame(code uint32, sync uint64, schemaID, streamID uint64) Cursor {
	placeholder := r.buf.SaveCursor()
	r.buf.Append([]byte{mpUint32, 0, 0, 0, 0})

	n := 2
	if schemaID != 0 {
		n++
	}
	if streamID != 0 {
		n++
	}
	r.enc.EncodeMapHeader(n)
	r.enc.EncodeUint(iprotoRequestType)
	r.enc.EncodeUint(uint64(code))
	r.enc.EncodeUint(iprotoSync)
	r.enc.EncodeUint(sync)
	if schemaID != 0 {
		r.enc.EncodeUint(iprotoSchemaVersion)
		r.enc.EncodeUint(schemaID)
	}
	if streamID != 0 {
		r.enc.EncodeUint(iprotoStreamID)
		r.enc.EncodeUint(streamID)
	}
	return placeholder
}

func (r *RequestEncoder) endFrame(placeholder Cursor) {
	length := uint32(r.buf.WritePos() - (placeholder.abs + 5))
	r.buf.PatchAt(placeholder, []byte{
		mpUint32,
		byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
	})
}

func (r *RequestEncoder) encodeTupleValues(values []any) error {
	r.enc.EncodeArrayHeader(len(values))
	for _, v := range values {
		if err := r.enc.EncodeAny(v); err != nil {
			return err
		}
	}
	return nil
}

// Ping writes an empty-body ping frame.
func (r *RequestEncoder) Ping(sync uint64) error {
	ph := r.beginFrame(iprotoPing, sync, 0, 0)
	r.enc.EncodeMapHeader(0)
	r.endFrame(ph)
	return nil
}

// Scramble computes sha1(sha1(password)) xor sha1(salt || sha1(password)),
// the chap-sha1 scramble (spec.md §4.3), grounded on the same double-SHA1
// shape as the teacher driver's native-password scramblePassword.
func Scramble(salt []byte, password string) []byte {
	if password == "" {
		return nil
	}
	stage1 := sha1.Sum([]byte(password))
	stage2 := sha1.Sum(stage1[:])
	h := sha1.New()
	h.Write(salt)
	h.Write(stage2[:])
	stage3 := h.Sum(nil)

	scramble := make([]byte, sha1.Size)
	for i := range scramble {
		scramble[i] = stage1[i] ^ stage3[i]
	}
	return scramble
}

// Auth writes an auth frame: {user_name, {"chap-sha1", scramble}}.
func (r *RequestEncoder) Auth(sync uint64, user string, salt []byte, password string) error {
	ph := r.beginFrame(iprotoAuth, sync, 0, 0)
	r.enc.EncodeMapHeader(2)
	r.enc.EncodeUint(iprotoUserName)
	r.enc.EncodeStr(user)
	r.enc.EncodeUint(iprotoTuple)
	r.enc.EncodeArrayHeader(2)
	r.enc.EncodeStr("chap-sha1")
	r.enc.EncodeBin(Scramble(salt, password))
	r.endFrame(ph)
	return nil
}

// Insert/Replace write {space_id, tuple}.
func (r *RequestEncoder) insertOrReplace(code uint32, sync, schemaID uint64, space uint32, tuple []any) error {
	ph := r.beginFrame(code, sync, schemaID, 0)
	r.enc.EncodeMapHeader(2)
	r.enc.EncodeUint(iprotoSpaceID)
	r.enc.EncodeUint(uint64(space))
	r.enc.EncodeUint(iprotoTuple)
	if err := r.encodeTupleValues(tuple); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

func (r *RequestEncoder) Insert(sync, schemaID uint64, space uint32, tuple []any) error {
	return r.insertOrReplace(iprotoInsert, sync, schemaID, space, tuple)
}

func (r *RequestEncoder) Replace(sync, schemaID uint64, space uint32, tuple []any) error {
	return r.insertOrReplace(iprotoReplace, sync, schemaID, space, tuple)
}

// Delete writes {space_id, index_id, key}.
func (r *RequestEncoder) Delete(sync, schemaID uint64, space, index uint32, key []any) error {
	ph := r.beginFrame(iprotoDelete, sync, schemaID, 0)
	r.enc.EncodeMapHeader(3)
	r.enc.EncodeUint(iprotoSpaceID)
	r.enc.EncodeUint(uint64(space))
	r.enc.EncodeUint(iprotoIndexID)
	r.enc.EncodeUint(uint64(index))
	r.enc.EncodeUint(iprotoKey)
	if err := r.encodeTupleValues(key); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Update writes {space_id, index_id, key, ops}.
func (r *RequestEncoder) Update(sync, schemaID uint64, space, index uint32, key, ops []any) error {
	ph := r.beginFrame(iprotoUpdate, sync, schemaID, 0)
	r.enc.EncodeMapHeader(4)
	r.enc.EncodeUint(iprotoSpaceID)
	r.enc.EncodeUint(uint64(space))
	r.enc.EncodeUint(iprotoIndexID)
	r.enc.EncodeUint(uint64(index))
	r.enc.EncodeUint(iprotoKey)
	if err := r.encodeTupleValues(key); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.enc.EncodeUint(iprotoOps)
	if err := r.encodeTupleValues(ops); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Upsert writes {space_id, tuple, ops}.
func (r *RequestEncoder) Upsert(sync, schemaID uint64, space uint32, tuple, ops []any) error {
	ph := r.beginFrame(iprotoUpsert, sync, schemaID, 0)
	r.enc.EncodeMapHeader(3)
	r.enc.EncodeUint(iprotoSpaceID)
	r.enc.EncodeUint(uint64(space))
	r.enc.EncodeUint(iprotoTuple)
	if err := r.encodeTupleValues(tuple); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.enc.EncodeUint(iprotoOps)
	if err := r.encodeTupleValues(ops); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Select writes {space_id, index_id, limit, offset, iterator, key}.
func (r *RequestEncoder) Select(sync, schemaID uint64, space, index uint32, limit, offset uint32, iter IteratorType, key []any) error {
	ph := r.beginFrame(iprotoSelect, sync, schemaID, 0)
	r.enc.EncodeMapHeader(6)
	r.enc.EncodeUint(iprotoSpaceID)
	r.enc.EncodeUint(uint64(space))
	r.enc.EncodeUint(iprotoIndexID)
	r.enc.EncodeUint(uint64(index))
	r.enc.EncodeUint(iprotoLimit)
	r.enc.EncodeUint(uint64(limit))
	r.enc.EncodeUint(iprotoOffset)
	r.enc.EncodeUint(uint64(offset))
	r.enc.EncodeUint(iprotoIterator)
	r.enc.EncodeUint(uint64(iter))
	r.enc.EncodeUint(iprotoKey)
	if err := r.encodeTupleValues(key); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Call writes {function_name, tuple(args)}.
func (r *RequestEncoder) Call(sync, schemaID uint64, function string, args []any) error {
	ph := r.beginFrame(iprotoCall, sync, schemaID, 0)
	r.enc.EncodeMapHeader(2)
	r.enc.EncodeUint(iprotoFunctionName)
	r.enc.EncodeStr(function)
	r.enc.EncodeUint(iprotoTuple)
	if err := r.encodeTupleValues(args); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Eval writes {expr, tuple(args)}.
func (r *RequestEncoder) Eval(sync, schemaID uint64, expr string, args []any) error {
	ph := r.beginFrame(iprotoEval, sync, schemaID, 0)
	r.enc.EncodeMapHeader(2)
	r.enc.EncodeUint(iprotoExpr)
	r.enc.EncodeStr(expr)
	r.enc.EncodeUint(iprotoTuple)
	if err := r.encodeTupleValues(args); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// StmtOrText is either a prepared statement id (integer) or raw SQL text,
// matching spec.md §4.3's execute(stmt_or_id, binds).
type StmtOrText struct {
	Text string
	ID   uint64
	// byID records that ID, not Text, was given; zero is a valid prepared
	// statement id in principle, so ID == 0 can't double for "no id given".
	byID bool
}

func StmtText(text string) StmtOrText { return StmtOrText{Text: text} }
func StmtID(id uint64) StmtOrText     { return StmtOrText{ID: id, byID: true} }

// Execute writes {stmt_id|sql_text, sql_bind}.
func (r *RequestEncoder) Execute(sync, schemaID uint64, stmt StmtOrText, binds []any) error {
	ph := r.beginFrame(iprotoExecute, sync, schemaID, 0)
	r.enc.EncodeMapHeader(2)
	if stmt.byID {
		r.enc.EncodeUint(iprotoStmtID)
		r.enc.EncodeUint(stmt.ID)
	} else {
		r.enc.EncodeUint(iprotoSQLText)
		r.enc.EncodeStr(stmt.Text)
	}
	r.enc.EncodeUint(iprotoSQLBind)
	if err := r.encodeTupleValues(binds); err != nil {
		r.buf.Rewind(ph)
		return err
	}
	r.endFrame(ph)
	return nil
}

// Prepare writes {sql_text}.
func (r *RequestEncoder) Prepare(sync, schemaID uint64, text string) error {
	ph := r.beginFrame(iprotoPrepare, sync, schemaID, 0)
	r.enc.EncodeMapHeader(1)
	r.enc.EncodeUint(iprotoSQLText)
	r.enc.EncodeStr(text)
	r.endFrame(ph)
	return nil
}

// Begin/Commit/Rollback carry an empty body; the transaction is correlated
// purely via the header's stream_id (SPEC_FULL.md's transaction-control
// supplement, grounded on original_source/ClientTest.cpp's begin/commit
// usage beyond spec.md's distilled request list).
func (r *RequestEncoder) Begin(sync, schemaID, streamID uint64) error {
	ph := r.beginFrame(iprotoBegin, sync, schemaID, streamID)
	r.enc.EncodeMapHeader(0)
	r.endFrame(ph)
	return nil
}

func (r *RequestEncoder) Commit(sync, schemaID, streamID uint64) error {
	ph := r.beginFrame(iprotoCommit, sync, schemaID, streamID)
	r.enc.EncodeMapHeader(0)
	r.endFrame(ph)
	return nil
}

func (r *RequestEncoder) Rollback(sync, schemaID, streamID uint64) error {
	ph := r.beginFrame(iprotoRollback, sync, schemaID, streamID)
	r.enc.EncodeMapHeader(0)
	r.endFrame(ph)
	return nil
}
