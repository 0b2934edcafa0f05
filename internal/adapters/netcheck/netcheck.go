// Package netcheck reports whether the network is reachable.
package netcheck

import (
	"context"
	"net"
	"time"
)

// DefaultTarget is a public DNS resolver reachable from most networks.
const DefaultTarget = "8.8.8.8:53"

// Checker implements ports.ConnectivityChecker by dialing a TCP target.
type Checker struct {
	target  string
	timeout time.Duration
}

// New creates a Checker. An empty target uses DefaultTarget.
func New(target string, timeout time.Duration) *Checker {
	if target == "" {
		target = DefaultTarget
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{target: target, timeout: timeout}
}

// IsConnected dials the target once.
func (c *Checker) IsConnected(ctx context.Context) bool {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.target)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Always is a ConnectivityChecker with a fixed answer.
type Always bool

func (a Always) IsConnected(context.Context) bool { return bool(a) }
