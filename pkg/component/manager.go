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

// Package component wires the long-lived pieces of the process together:
// configuration, backend connections, tenant resolution, metrics, and the
// toolset. One Manager is built in main and passed by reference; there is
// no package-level mutable state.
package component

import (
	"context"
	"fmt"

	"github.com/syia/fleetgate/pkg/backends"
	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/observability"
	"github.com/syia/fleetgate/pkg/tenant"
	"github.com/syia/fleetgate/pkg/tools"
)

// Manager owns the shared components.
type Manager struct {
	cfg      *config.Config
	metrics  *observability.Metrics
	backends *backends.Registry
	resolver *tenant.Resolver
	cache    *tenant.Cache
	toolset  *tools.Toolset
}

// NewManager builds all components from configuration. No backend
// connection is made here; handles connect on first use.
func NewManager(cfg *config.Config) (*Manager, error) {
	metrics := observability.New()
	reg := backends.NewRegistry(cfg, backends.WithMetrics(metrics))

	cache, err := tenant.NewCache(cfg.Tenancy.CacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fleet cache: %w", err)
	}

	source := tenant.NewMongoFleetSource(reg, cfg.Tenancy)
	resolver := tenant.NewResolver(source, cache, cfg.Tenancy.BypassMarkers)
	toolset := tools.New(cfg, reg, resolver, metrics)

	return &Manager{
		cfg:      cfg,
		metrics:  metrics,
		backends: reg,
		resolver: resolver,
		cache:    cache,
		toolset:  toolset,
	}, nil
}

// Config returns the loaded configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Metrics returns the process collectors.
func (m *Manager) Metrics() *observability.Metrics {
	return m.metrics
}

// Backends returns the connection registry.
func (m *Manager) Backends() *backends.Registry {
	return m.backends
}

// Resolver returns the tenant resolver.
func (m *Manager) Resolver() *tenant.Resolver {
	return m.resolver
}

// Toolset returns the MCP toolset.
func (m *Manager) Toolset() *tools.Toolset {
	return m.toolset
}

// Start launches background work: the backend health monitor.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.Server.HealthInterval > 0 {
		m.backends.StartHealthMonitor(ctx, m.cfg.Server.HealthInterval)
	}
}

// Close shuts down background work and all backend connections, collecting
// errors rather than stopping at the first.
func (m *Manager) Close(ctx context.Context) error {
	return m.backends.CloseAll(ctx)
}
