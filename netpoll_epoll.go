//go:build linux

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollProvider is the "system multiplexer" NetProvider (spec.md §5),
// backed by Linux epoll in level-triggered mode. Level-triggered is the
// simpler correctness story for this client: if a read leaves bytes
// unconsumed (DecodeWith stopping mid-frame because a later frame isn't
// fully buffered yet), epoll keeps reporting readability next Wait rather
// than requiring the caller to remember to re-arm.
type epollProvider struct {
	fd int

	mu   sync.Mutex
	conn map[int]*Connection // fd -> Connection, for events lookup after Wait
}

func newEpollProvider() (*epollProvider, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollProvider{fd: fd, conn: make(map[int]*Connection)}, nil
}

func (p *epollProvider) Register(conn *Connection) error {
	raw := conn.stream.RawConn()
	if raw == nil {
		return ErrInvalidConn
	}
	var ctlErr error
	err := raw.Control(func(fd uintptr) {
		p.mu.Lock()
		p.conn[int(fd)] = conn
		p.mu.Unlock()
		conn.pollFD = int(fd)
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		ctlErr = unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, int(fd), &ev)
	})
	if err != nil {
		return err
	}
	return ctlErr
}

func (p *epollProvider) Unregister(conn *Connection) error {
	if conn.pollFD == 0 {
		return nil
	}
	p.mu.Lock()
	delete(p.conn, conn.pollFD)
	p.mu.Unlock()
	unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, conn.pollFD, nil)
	return nil
}

func (p *epollProvider) SetWritable(conn *Connection, writable bool) error {
	if conn.pollFD == 0 {
		return nil
	}
	events := uint32(unix.EPOLLIN)
	if writable {
		events |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(conn.pollFD)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, conn.pollFD, &ev)
}

func (p *epollProvider) Wait(timeout time.Duration) error {
	events := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}
	n, err := unix.EpollWait(p.fd, events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		p.mu.Lock()
		conn, ok := p.conn[int(events[i].Fd)]
		p.mu.Unlock()
		if !ok {
			continue
		}
		if events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			conn.onReadable()
		}
		if events[i].Events&unix.EPOLLOUT != 0 {
			conn.onWritable()
		}
	}
	return nil
}

func (p *epollProvider) Close() error {
	return unix.Close(p.fd)
}
