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

// Package observability holds the fleetgate Prometheus collectors.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all fleetgate collectors. Construct one per process (or
// per test) with New; there is no package-level default.
type Metrics struct {
	registry *prometheus.Registry

	ConnectAttempts *prometheus.CounterVec
	ConnectionState *prometheus.GaugeVec
	HealthChecks    *prometheus.CounterVec

	FilterItemsProcessed prometheus.Counter
	FilterItemsRemoved   prometheus.Counter

	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ConnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetgate_backend_connect_attempts_total",
			Help: "Backend connect attempts by target and outcome.",
		}, []string{"target", "outcome"}),

		ConnectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetgate_backend_connection_state",
			Help: "Backend connection state (0 disconnected, 1 connecting, 2 connected, 3 failed).",
		}, []string{"target"}),

		HealthChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetgate_backend_health_checks_total",
			Help: "Background liveness probes by target and outcome.",
		}, []string{"target", "outcome"}),

		FilterItemsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetgate_authz_items_processed_total",
			Help: "Records inspected by the authorization filter.",
		}),

		FilterItemsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetgate_authz_items_removed_total",
			Help: "Records removed by the authorization filter.",
		}),

		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetgate_tool_calls_total",
			Help: "MCP tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),

		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetgate_tool_duration_seconds",
			Help:    "MCP tool handler duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
