// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

// Opts configures Connect (spec.md §5/§9). Address/Service name a TCP
// endpoint (host and port or service name) or, when Transport is
// TransportUnix, Address is a filesystem path and Service is ignored.
type Opts struct {
	Transport Transport `json:"transport"`
	Address   string    `json:"address"`
	Service   string    `json:"service"`

	User   string `json:"user"`
	Passwd string `json:"passwd"`

	CertFile   string `json:"cert"`
	KeyFile    string `json:"key"`
	CAFile     string `json:"ca"`
	ServerName string `json:"server_name"`

	ConnectTimeoutMS int `json:"connect_timeout_ms"`

	// MaxOutputBufferBytes caps how much unsent output a Connection will
	// accumulate before Submit starts returning ErrWouldBlock (spec.md §5's
	// backpressure high-water mark). Zero selects the package default.
	MaxOutputBufferBytes int64 `json:"max_output_buffer_bytes"`

	// EnableWireTrace and TraceDir turn on the debug-only raw-frame logger
	// (spec.md §9). Off by default; never enable against untrusted input
	// since the trace includes the decrypted auth scramble input.
	EnableWireTrace bool   `json:"enable_wire_trace"`
	TraceDir        string `json:"trace_dir"`
}

// Transport names which socket kind and security layer to dial.
type Transport int

const (
	TransportPlainTCP Transport = iota
	TransportUnix
	TransportSSL
)

// ConnectTimeout resolves ConnectTimeoutMS to a time.Duration, defaulting to
// 2 seconds when unset.
func (o Opts) ConnectTimeout() time.Duration {
	if o.ConnectTimeoutMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(o.ConnectTimeoutMS) * time.Millisecond
}

func (o Opts) streamOpts() streamOpts {
	so := streamOpts{
		Address:    o.Address,
		TLS:        o.Transport == TransportSSL,
		CertFile:   o.CertFile,
		KeyFile:    o.KeyFile,
		CAFile:     o.CAFile,
		ServerName: o.ServerName,
	}
	if o.Transport == TransportUnix {
		so.Network = "unix"
		return so
	}
	so.Network = "tcp"
	if o.Service != "" {
		so.Address = net_JoinHostPort(o.Address, o.Service)
	}
	return so
}

// net_JoinHostPort joins host and port with net.JoinHostPort, which
// brackets IPv6 literals ("[::1]:3301").
func net_JoinHostPort(host, port string) string {
	return net.JoinHostPort(host, port)
}

// OptsFromYAML loads Opts from YAML configuration (SPEC_FULL.md's
// domain-stack wiring for sigs.k8s.io/yaml, the same config-loading library
// used across the retrieval pack's service entrypoints).
func OptsFromYAML(data []byte) (Opts, error) {
	var o Opts
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Opts{}, fmt.Errorf("tarantool: parsing config: %w", err)
	}
	if o.Address == "" {
		return Opts{}, fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}
	return o, nil
}

func loadCAFile(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("tarantool: no certificates found in %s", path)
	}
	return pool, nil
}
