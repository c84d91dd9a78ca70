// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "github.com/dchest/siphash"

// StmtCache maps SQL text to a previously prepared statement id, so a
// caller that calls Execute with the same text repeatedly can Prepare once
// and reuse the id (SPEC_FULL.md's supplement; spec.md's distilled
// §4.3 Prepare/Execute leaves statement-id reuse to the caller, but
// original_source's connector keeps exactly this kind of local cache so a
// caller doesn't have to).
//
// Keys are hashed with siphash rather than relying on Go's built-in map
// hash, so a cache entry's key is stable and reproducible across processes
// for a given seed.
type StmtCache struct {
	k0, k1  uint64
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	text string
	id   uint64
}

// NewStmtCache creates an empty cache keyed with the given siphash seed.
// Callers that don't care about cross-process key stability can pass a
// fixed seed; two Connections sharing a seed will compute identical cache
// keys for identical SQL text.
func NewStmtCache(k0, k1 uint64) *StmtCache {
	return &StmtCache{k0: k0, k1: k1, entries: make(map[uint64]cacheEntry)}
}

func (c *StmtCache) key(text string) uint64 {
	return siphash.Hash(c.k0, c.k1, []byte(text))
}

// Lookup returns the cached statement id for text, if present. The stored
// text is compared with text, so a siphash collision between two different
// texts reports "not found" rather than the other statement's id; the two
// texts share one slot, and storing either replaces the other.
func (c *StmtCache) Lookup(text string) (uint64, bool) {
	e, ok := c.entries[c.key(text)]
	if !ok || e.text != text {
		return 0, false
	}
	return e.id, true
}

// Store records text's prepared statement id.
func (c *StmtCache) Store(text string, id uint64) {
	c.entries[c.key(text)] = cacheEntry{text: text, id: id}
}

// Forget removes text's entry, used when a Prepare'd statement is
// explicitly discarded server-side.
func (c *StmtCache) Forget(text string) {
	delete(c.entries, c.key(text))
}

// Len reports how many statements are currently cached.
func (c *StmtCache) Len() int { return len(c.entries) }
