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

package config

import (
	"fmt"
	"time"
)

// TransportType identifies the MCP transport.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportHTTP  TransportType = "http"
)

// ServerConfig configures the MCP server and the status listener.
type ServerConfig struct {
	// Transport is the MCP transport (stdio, http).
	Transport TransportType `yaml:"transport,omitempty"`

	// Listen is the MCP address for the http transport.
	Listen string `yaml:"listen,omitempty"`

	// StatusListen is the address of the health/metrics sidecar listener.
	// Empty disables it.
	StatusListen string `yaml:"status_listen,omitempty"`

	// HealthInterval is the period of background liveness probes against
	// registered backend connections. Zero disables background probing.
	HealthInterval time.Duration `yaml:"health_interval,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = time.Minute
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
		return nil
	default:
		return fmt.Errorf("invalid transport %q (valid: stdio, http)", c.Transport)
	}
}
