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

package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/observability"
	"github.com/syia/fleetgate/pkg/registry"
)

// DefaultHealthInterval spaces background liveness probes.
const DefaultHealthInterval = time.Minute

// Registry owns one Handle per backend target. Handles are created on first
// request and live until CloseAll.
type Registry struct {
	handles *registry.BaseRegistry[Handle]
	mongo   map[string]*config.MongoClusterConfig
	search  map[string]*config.SearchClusterConfig
	metrics *observability.Metrics

	monitorOn bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics attaches Prometheus collectors to the registry.
func WithMetrics(m *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry builds a registry over the configured clusters. No connection
// is made until a handle is first requested.
func NewRegistry(cfg *config.Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		handles: registry.NewBaseRegistry[Handle](),
		mongo:   make(map[string]*config.MongoClusterConfig),
		search:  make(map[string]*config.SearchClusterConfig),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for name, c := range cfg.Mongo {
		cc := c
		r.mongo[name] = &cc
	}
	for name, c := range cfg.Search {
		cc := c
		r.search[name] = &cc
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mongo returns the shared handle for the named document-store cluster,
// claiming the registry slot before any connection work happens. Concurrent
// first callers all receive the same handle; the connect sequence runs once,
// inside the handle, outside the registry lock.
func (r *Registry) Mongo(ctx context.Context, name string) (*MongoHandle, error) {
	cfg, ok := r.mongo[name]
	if !ok {
		return nil, fmt.Errorf("unknown document-store cluster '%s'", name)
	}

	key := mongoHandleKey(name)
	h, existed := r.handles.GetOrRegister(key, func() Handle {
		return NewMongoHandle(name, cfg)
	})
	mh, ok := h.(*MongoHandle)
	if !ok {
		return nil, fmt.Errorf("handle '%s' is not a document-store handle", key)
	}

	if err := mh.Connect(ctx); err != nil {
		r.observeConnect(mh, "failure")
		// A handle that never connected stays registered; the next
		// caller retries through the same handle.
		return nil, err
	}
	if !existed {
		r.observeConnect(mh, "success")
	}
	return mh, nil
}

// Search returns the shared handle for the named search-index cluster. The
// handle verifies the cluster lazily, on first query.
func (r *Registry) Search(name string) (*SearchHandle, error) {
	cfg, ok := r.search[name]
	if !ok {
		return nil, fmt.Errorf("unknown search-index cluster '%s'", name)
	}

	key := searchHandleKey(name)
	h, _ := r.handles.GetOrRegister(key, func() Handle {
		return NewSearchHandle(name, cfg)
	})
	sh, ok := h.(*SearchHandle)
	if !ok {
		return nil, fmt.Errorf("handle '%s' is not a search-index handle", key)
	}
	return sh, nil
}

// States reports the current state of every registered handle, keyed by
// target.
func (r *Registry) States() map[string]State {
	states := make(map[string]State)
	for _, h := range r.handles.List() {
		states[h.Key().String()] = h.State()
	}
	return states
}

// StartHealthMonitor probes every registered handle on the given interval
// until StopHealthMonitor or ctx cancellation. A failed probe marks the
// handle but never tears it down or reconnects it.
func (r *Registry) StartHealthMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	r.monitorOn = true
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.probeAll(ctx, interval)
			}
		}
	}()
}

// StopHealthMonitor stops the background probe loop and waits for it to
// exit. Safe to call multiple times and without a prior Start.
func (r *Registry) StopHealthMonitor() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if !r.monitorOn {
			return
		}
		select {
		case <-r.done:
		case <-time.After(5 * time.Second):
		}
	})
}

func (r *Registry) probeAll(ctx context.Context, interval time.Duration) {
	handles := r.handles.List()
	var wg sync.WaitGroup
	for _, h := range handles {
		if h.State() == StateDisconnected || h.State() == StateConnecting {
			continue
		}
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, interval/2)
			defer cancel()

			err := h.Ping(probeCtx)
			outcome := "success"
			if err != nil {
				outcome = "failure"
				slog.Warn("Backend health probe failed",
					"target", h.Key().String(), "error", err)
			}
			if r.metrics != nil {
				r.metrics.HealthChecks.WithLabelValues(h.Key().String(), outcome).Inc()
				r.metrics.ConnectionState.WithLabelValues(h.Key().String()).Set(float64(h.State()))
			}
		}(h)
	}
	wg.Wait()
}

// CloseAll closes every handle, collecting errors rather than stopping at
// the first, then empties the registry. It also stops the health monitor.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.StopHealthMonitor()

	var errs []error
	for _, h := range r.handles.List() {
		if err := h.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h.Key().String(), err))
		}
	}
	r.handles.Clear()
	return errors.Join(errs...)
}

func (r *Registry) observeConnect(h Handle, outcome string) {
	if r.metrics == nil {
		return
	}
	target := h.Key().String()
	r.metrics.ConnectAttempts.WithLabelValues(target, outcome).Inc()
	r.metrics.ConnectionState.WithLabelValues(target).Set(float64(h.State()))
}

func mongoHandleKey(name string) string {
	return "mongo/" + name
}

func searchHandleKey(name string) string {
	return "search/" + name
}
