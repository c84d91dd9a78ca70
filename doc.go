// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tarantool is a client for Tarantool's binary protocol: a MsgPack
// codec (Value, Encoder, Decoder), a request/response protocol engine
// (RequestEncoder, Response), and a connection layer (Connector, Connection,
// Space) that multiplexes many in-flight requests over one socket using a
// cooperative, non-blocking event loop rather than one goroutine per
// request.
//
// A Connector dials a server, performs the greeting/auth handshake, and
// hands back a Connection. Every request method on Connection (Insert,
// Select, Call, Execute, ...) is asynchronous: it returns a sync id
// immediately, and the caller retrieves the reply later via
// Connector.Wait/WaitAll/WaitAny.
package tarantool
