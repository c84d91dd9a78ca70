//go:build !linux

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import "errors"

// newEpollProvider is unavailable outside Linux; newNetProvider falls back
// to the portable reactor.
func newEpollProvider() (NetProvider, error) {
	return nil, errors.New("tarantool: epoll not available on this platform")
}
