// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"sync"
	"time"
)

// reactorProvider is the portable NetProvider fallback (spec.md §5's
// "library-based reactor" alternative): no kernel readiness primitive, just
// round-robin polling of every registered Connection once per Wait. It is
// always correct, since Connection.onReadable/onWritable tolerate
// ErrWouldBlock from a Stream that has nothing ready, but costs one syscall
// probe per registered Connection per Wait instead of epoll's O(ready) scan.
// newNetProvider selects it on non-Linux platforms; it is the only provider
// that can drive a Stream with no raw fd (e.g. TLS).
type reactorProvider struct {
	mu    sync.Mutex
	conns map[*Connection]bool // value: wants write readiness too
}

func newReactorProvider() *reactorProvider {
	return &reactorProvider{conns: make(map[*Connection]bool)}
}

func (p *reactorProvider) Register(conn *Connection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[conn] = false
	return nil
}

func (p *reactorProvider) Unregister(conn *Connection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, conn)
	return nil
}

func (p *reactorProvider) SetWritable(conn *Connection, writable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[conn]; ok {
		p.conns[conn] = writable
	}
	return nil
}

func (p *reactorProvider) Wait(timeout time.Duration) error {
	if timeout > 0 {
		time.Sleep(timeout)
	}
	p.mu.Lock()
	snapshot := make(map[*Connection]bool, len(p.conns))
	for c, w := range p.conns {
		snapshot[c] = w
	}
	p.mu.Unlock()

	for conn, writable := range snapshot {
		conn.onReadable()
		if writable {
			conn.onWritable()
		}
	}
	return nil
}

func (p *reactorProvider) Close() error { return nil }
