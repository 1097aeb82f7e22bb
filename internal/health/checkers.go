// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// PingChecker reports unhealthy when ping fails or exceeds its timeout.
type PingChecker struct {
	name    string
	ping    func(context.Context) error
	timeout time.Duration
}

func NewPingChecker(name string, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, timeout: defaultCheckTimeout}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.ping == nil {
		return CheckResult{Status: StatusUnhealthy, Error: "no probe configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// StateChecker maps a component state string to a status; states not in
// the map are healthy.
type StateChecker struct {
	name     string
	state    func() string
	statuses map[string]Status
}

func NewStateChecker(name string, state func() string, statuses map[string]Status) *StateChecker {
	return &StateChecker{name: name, state: state, statuses: statuses}
}

func (c *StateChecker) Name() string { return c.name }

func (c *StateChecker) Check(context.Context) CheckResult {
	s := c.state()
	st, ok := c.statuses[s]
	if !ok {
		st = StatusHealthy
	}
	return CheckResult{Status: st, Message: s}
}

// LastActivityChecker reports how long ago the consumer last finished a
// delivery. An idle consumer is normal, so staleness only degrades.
type LastActivityChecker struct {
	last     func() time.Time
	staleAge time.Duration
}

func NewLastActivityChecker(last func() time.Time, staleAge time.Duration) *LastActivityChecker {
	return &LastActivityChecker{last: last, staleAge: staleAge}
}

func (c *LastActivityChecker) Name() string { return "consumer_activity" }

func (c *LastActivityChecker) Check(context.Context) CheckResult {
	last := c.last()
	if last.IsZero() {
		return CheckResult{Status: StatusHealthy, Message: "no events handled yet"}
	}
	age := time.Since(last).Truncate(time.Second)
	if c.staleAge > 0 && age > c.staleAge {
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("last event handled %s ago", age)}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("last event handled %s ago", age)}
}

// informational downgrades unhealthy results to degraded so they do not fail
// readiness.
type informational struct{ Checker }

func Informational(c Checker) Checker { return informational{c} }

func (i informational) Check(ctx context.Context) CheckResult {
	r := i.Checker.Check(ctx)
	if r.Status == StatusUnhealthy {
		r.Status = StatusDegraded
	}
	return r
}
