// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// Space and IndexHandle are the sugared space[id]/index[j] accessors
// (SPEC_FULL.md's supplement, grounded on original_source/ClientTest.cpp's
// space[id].replace(...)/index[j].select(...) usage). They're thin
// argument-binding wrappers over Connection's request methods — all the
// actual protocol work still happens there.
type Space struct {
	conn *Connection
	id   uint32
}

// Space returns a sugared handle bound to a space id.
func (c *Connection) Space(id uint32) Space { return Space{conn: c, id: id} }

func (s Space) Insert(tuple []any) (uint64, error)  { return s.conn.Insert(s.id, tuple) }
func (s Space) Replace(tuple []any) (uint64, error) { return s.conn.Replace(s.id, tuple) }
func (s Space) Upsert(tuple, ops []any) (uint64, error) {
	return s.conn.Upsert(s.id, tuple, ops)
}

// Index returns a sugared handle bound to both the space and one of its
// indexes, for the operations that need an index id (select/delete/update).
func (s Space) Index(id uint32) IndexHandle {
	return IndexHandle{conn: s.conn, space: s.id, index: id}
}

type IndexHandle struct {
	conn  *Connection
	space uint32
	index uint32
}

func (ix IndexHandle) Select(limit, offset uint32, iter IteratorType, key []any) (uint64, error) {
	return ix.conn.Select(ix.space, ix.index, limit, offset, iter, key)
}

func (ix IndexHandle) Delete(key []any) (uint64, error) {
	return ix.conn.Delete(ix.space, ix.index, key)
}

func (ix IndexHandle) Update(key, ops []any) (uint64, error) {
	return ix.conn.Update(ix.space, ix.index, key, ops)
}
