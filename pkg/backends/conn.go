// Copyright 2026 Siya Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backends manages connections to document-store and search-index
// clusters.
//
// Each distinct (endpoint, namespace, name) target gets exactly one Handle,
// owned by the Registry for the life of the process. Handles connect lazily
// with bounded retry and expose their state for health monitoring.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultConnectAttempts bounds the connect retry loop.
	DefaultConnectAttempts = 5

	// DefaultConnectDelay is the fixed delay between connect attempts.
	DefaultConnectDelay = 2 * time.Second
)

// State is the lifecycle state of a connection handle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Key identifies one backend target. Two requests with equal keys share one
// underlying connection.
type Key struct {
	// Endpoint is the network target (URI or host:port).
	Endpoint string

	// Namespace is the logical database within the target.
	Namespace string

	// Name is the logical cluster name from configuration.
	Name string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s/%s", k.Name, k.Endpoint, k.Namespace)
}

// ConnectionError reports retry exhaustion against one endpoint.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backend %s unreachable after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SleepFunc abstracts the inter-attempt delay so tests run without real
// waiting. It must honor context cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handle is one managed connection to one backend target.
type Handle interface {
	// Key returns the registry key of this handle.
	Key() Key

	// Connect establishes the connection, retrying up to the configured
	// bound. Safe for concurrent use; only one connect sequence runs.
	Connect(ctx context.Context) error

	// Ping issues a liveness probe and updates the handle state.
	Ping(ctx context.Context) error

	// State returns the current connection state.
	State() State

	// LastHealthCheck returns the time of the most recent probe.
	LastHealthCheck() time.Time

	// Close tears down the connection. Closing an unconnected handle is
	// a no-op.
	Close(ctx context.Context) error
}

// connState tracks state and probe time shared by handle implementations.
type connState struct {
	state     atomic.Int32
	mu        sync.Mutex
	lastCheck time.Time
}

func (c *connState) State() State {
	return State(c.state.Load())
}

func (c *connState) setState(s State) {
	c.state.Store(int32(s))
}

func (c *connState) LastHealthCheck() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCheck
}

func (c *connState) markChecked(now time.Time) {
	c.mu.Lock()
	c.lastCheck = now
	c.mu.Unlock()
}

// connectWithRetry runs dial up to attempts times with a fixed delay.
// It returns nil on the first success, or a ConnectionError wrapping the
// last failure once the bound is exhausted.
func connectWithRetry(ctx context.Context, key Key, attempts int, delay time.Duration, sleep SleepFunc, dial func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &ConnectionError{Endpoint: key.Endpoint, Attempts: attempt - 1, Err: err}
		}

		if err := dial(ctx); err != nil {
			lastErr = err
			slog.Warn("Backend connect attempt failed",
				"target", key.String(), "attempt", attempt, "of", attempts, "error", err)
			if attempt < attempts {
				if serr := sleep(ctx, delay); serr != nil {
					return &ConnectionError{Endpoint: key.Endpoint, Attempts: attempt, Err: serr}
				}
			}
			continue
		}
		if attempt > 1 {
			slog.Info("Backend connected after retry", "target", key.String(), "attempt", attempt)
		}
		return nil
	}
	return &ConnectionError{Endpoint: key.Endpoint, Attempts: attempts, Err: lastErr}
}
