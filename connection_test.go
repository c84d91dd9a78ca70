// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"syscall"
	"testing"
)

// fakeStream is an in-memory Stream double: Send just records what was
// written, Recv serves bytes queued by the test via feed. It lets
// connection_test.go drive Connection's onReadable/onWritable without a
// real socket or NetProvider, the same way the teacher's driver tests a
// mysqlConn against a buffered fake net.Conn.
type fakeStream struct {
	sent   []byte
	toRecv []byte
	closed bool
}

func (f *fakeStream) Send(p []byte) (int, error) {
	f.sent = append(f.sent, p...)
	return len(p), nil
}

func (f *fakeStream) Recv(p []byte) (int, error) {
	if len(f.toRecv) == 0 {
		return 0, ErrWouldBlock
	}
	n := copy(p, f.toRecv)
	f.toRecv = f.toRecv[n:]
	return n, nil
}

func (f *fakeStream) RawConn() syscall.RawConn { return nil }

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func (f *fakeStream) feed(p []byte) { f.toRecv = append(f.toRecv, p...) }

func TestConnectionPingRoundTrip(t *testing.T) {
	stream := &fakeStream{}
	provider := newReactorProvider()
	conn := newConnection(stream, provider, 0)

	sync, err := conn.Ping()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(stream.sent) == 0 {
		t.Fatalf("Ping did not write anything to the stream")
	}

	reply := buildReplyFrame(t, map[string]any{"code": uint64(iprotoOK), "sync": sync}, func(enc *Encoder) {
		enc.EncodeMapHeader(0)
	})
	replyBytes, _ := reply.Read(reply.Size())
	stream.feed(replyBytes)

	conn.onReadable()

	if !conn.IsReady(sync) {
		t.Fatalf("response not ready after onReadable")
	}
	resp, err := conn.TakeResponse(sync)
	if err != nil {
		t.Fatalf("TakeResponse: %v", err)
	}
	if resp.Header.Code != iprotoOK {
		t.Fatalf("Code: got %#x", resp.Header.Code)
	}
}

func TestConnectionSubmitAfterCloseFails(t *testing.T) {
	stream := &fakeStream{}
	provider := newReactorProvider()
	conn := newConnection(stream, provider, 0)
	conn.Close()

	if _, err := conn.Ping(); err != ErrClosed {
		t.Fatalf("Ping after Close: got %v, want ErrClosed", err)
	}
}

func TestConnectionBackpressure(t *testing.T) {
	stream := &fakeStream{}
	provider := newReactorProvider()
	conn := newConnection(stream, provider, 1<<16)
	// Force the output buffer to look full without actually sending, by
	// reserving bytes directly.
	conn.out.Append(make([]byte, conn.maxOutputBytes+1))

	if _, err := conn.Ping(); err != ErrWouldBlock {
		t.Fatalf("Ping over backpressure limit: got %v, want ErrWouldBlock", err)
	}
}
