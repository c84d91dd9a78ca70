// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// This file is the thin joint between RequestEncoder (pure wire encoding)
// and Connection (I/O plus request bookkeeping): one method per request
// kind that allocates a sync id, writes the frame, and registers the
// pending slot (spec.md §4.3).

func (c *Connection) Ping() (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Ping(sync); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Insert(space uint32, tuple []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Insert(sync, c.schemaVersion, space, tuple); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Replace(space uint32, tuple []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Replace(sync, c.schemaVersion, space, tuple); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Delete(space, index uint32, key []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Delete(sync, c.schemaVersion, space, index, key); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Update(space, index uint32, key, ops []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Update(sync, c.schemaVersion, space, index, key, ops); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Upsert(space uint32, tuple, ops []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Upsert(sync, c.schemaVersion, space, tuple, ops); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Select(space, index uint32, limit, offset uint32, iter IteratorType, key []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Select(sync, c.schemaVersion, space, index, limit, offset, iter, key); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Call(function string, args []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Call(sync, c.schemaVersion, function, args); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Eval(expr string, args []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Eval(sync, c.schemaVersion, expr, args); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Execute(stmt StmtOrText, binds []any) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Execute(sync, c.schemaVersion, stmt, binds); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Prepare(text string) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Prepare(sync, c.schemaVersion, text); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

// Begin starts a new interactive transaction bound to a freshly allocated
// stream_id; Commit/Rollback take that id to address the same stream
// (SPEC_FULL.md's transaction-control supplement).
func (c *Connection) Begin() (streamID uint64, sync uint64, err error) {
	streamID = c.beginStream()
	sync, err = c.nextSyncID()
	if err != nil {
		return 0, 0, err
	}
	if err := c.enc.Begin(sync, c.schemaVersion, streamID); err != nil {
		return 0, 0, err
	}
	return streamID, sync, c.submit(sync)
}

func (c *Connection) Commit(streamID uint64) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Commit(sync, c.schemaVersion, streamID); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}

func (c *Connection) Rollback(streamID uint64) (uint64, error) {
	sync, err := c.nextSyncID()
	if err != nil {
		return 0, err
	}
	if err := c.enc.Rollback(sync, c.schemaVersion, streamID); err != nil {
		return 0, err
	}
	return sync, c.submit(sync)
}
