// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"
)

// DefaultPingTimeout bounds a PingChecker probe.
const DefaultPingTimeout = 2 * time.Second

// PingChecker marks a dependency unhealthy when its ping fails.
type PingChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewPingChecker wraps a ping function, e.g. preference.Store.Ping.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, timeout: DefaultPingTimeout}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// CapacityChecker reports degraded once a gauge reaches its soft limit.
// A limit of zero disables the check.
type CapacityChecker struct {
	name  string
	count func() int
	limit int
}

// NewCapacityChecker builds a checker over count, e.g. Registry.Len.
func NewCapacityChecker(name string, count func() int, limit int) *CapacityChecker {
	return &CapacityChecker{name: name, count: count, limit: limit}
}

func (c *CapacityChecker) Name() string { return c.name }

func (c *CapacityChecker) Check(context.Context) CheckResult {
	n := c.count()
	msg := fmt.Sprintf("%d active", n)
	if c.limit > 0 && n >= c.limit {
		return CheckResult{Status: StatusDegraded, Message: msg + fmt.Sprintf(", limit %d", c.limit)}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
