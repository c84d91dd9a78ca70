// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"crypto/tls"
	"net"
	"syscall"
	"time"
)

// Stream is the transport abstraction a Connection reads and writes frames
// through (spec.md §5's pluggable transport). Implementations wrap a plain
// TCP socket, a UNIX domain socket, or a TLS-wrapped socket over either.
type Stream interface {
	// Send writes as much of p as the socket will currently accept without
	// blocking, returning the number of bytes actually written.
	Send(p []byte) (int, error)
	// Recv reads whatever is currently available into p.
	Recv(p []byte) (int, error)
	// RawConn exposes the underlying fd for registration with a NetProvider;
	// nil if the stream cannot be polled this way (e.g. it's already wrapped
	// by something that manages its own buffering, such as TLS).
	RawConn() syscall.RawConn
	Close() error
}

// streamOpts configures dialStream (the address/transport/cert/key/ca
// options, carried here rather than threaded through every call). There is
// no cipher-suite option; crypto/tls defaults apply.
type streamOpts struct {
	Network string // "tcp", "unix"
	Address string

	TLS        bool
	CertFile   string
	KeyFile    string
	CAFile     string
	ServerName string
}

// netConnStream adapts a net.Conn (TCP or UNIX) to Stream. Go's net.Conn
// offers no non-blocking mode, so Send/Recv set a deadline 50ms ahead before
// each call: a call that cannot make progress returns ErrWouldBlock after at
// most 50ms instead of blocking indefinitely.
type netConnStream struct {
	conn net.Conn
}

func dialStream(opts streamOpts, timeout time.Duration) (Stream, error) {
	conn, err := net.DialTimeout(opts.Network, opts.Address, timeout)
	if err != nil {
		return nil, err
	}
	if opts.TLS {
		tlsConn, err := wrapTLS(conn, opts)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &tlsStream{conn: tlsConn}, nil
	}
	return &netConnStream{conn: conn}, nil
}

func wrapTLS(conn net.Conn, opts streamOpts) (*tls.Conn, error) {
	cfg := &tls.Config{ServerName: opts.ServerName}
	if opts.CertFile != "" && opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if opts.CAFile != "" {
		pool, err := loadCAFile(opts.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

func (s *netConnStream) Send(p []byte) (int, error) {
	s.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Write(p)
	if isTimeout(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

func (s *netConnStream) Recv(p []byte) (int, error) {
	s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Read(p)
	if isTimeout(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

func (s *netConnStream) RawConn() syscall.RawConn {
	sc, ok := s.conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil
	}
	return raw
}

func (s *netConnStream) Close() error { return s.conn.Close() }

// tlsStream wraps a TLS connection. TLS record framing means the socket's
// own readiness doesn't imply application-data readiness (a full record may
// need several socket reads), so RawConn returns nil and a tlsStream cannot
// be registered with epollProvider (Register returns ErrInvalidConn). Only
// the polling reactor, which newNetProvider selects on non-Linux platforms,
// drives it.
type tlsStream struct {
	conn *tls.Conn
}

func (s *tlsStream) Send(p []byte) (int, error) {
	s.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Write(p)
	if isTimeout(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

func (s *tlsStream) Recv(p []byte) (int, error) {
	s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Read(p)
	if isTimeout(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

func (s *tlsStream) RawConn() syscall.RawConn { return nil }

func (s *tlsStream) Close() error { return s.conn.Close() }

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
