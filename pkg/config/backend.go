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

// MongoClusterConfig configures one document-store cluster.
type MongoClusterConfig struct {
	// URI is the full connection string. When set, Host/Port/credentials
	// are ignored.
	URI string `yaml:"uri,omitempty"`

	// Host is the server hostname (used when URI is empty).
	Host string `yaml:"host,omitempty"`

	// Port is the server port (used when URI is empty).
	Port int `yaml:"port,omitempty"`

	// Username for authentication.
	Username string `yaml:"username,omitempty"`

	// Password for authentication.
	Password string `yaml:"password,omitempty"`

	// Database is the default logical database for this cluster.
	Database string `yaml:"database"`

	// ConnectTimeout bounds each connect attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`

	// SocketTimeout bounds individual backend calls.
	SocketTimeout time.Duration `yaml:"socket_timeout,omitempty"`

	// MaxPoolSize caps the driver connection pool.
	MaxPoolSize uint64 `yaml:"max_pool_size,omitempty"`
}

// SetDefaults applies default values.
func (c *MongoClusterConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 27017
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SocketTimeout == 0 {
		c.SocketTimeout = 30 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 64
	}
}

// Validate checks the cluster configuration.
func (c *MongoClusterConfig) Validate() error {
	if c.URI == "" && c.Host == "" {
		return fmt.Errorf("either uri or host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// ConnectionString returns the URI, building one from parts when absent.
func (c *MongoClusterConfig) ConnectionString() string {
	if c.URI != "" {
		return c.URI
	}
	if c.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", c.Username, c.Password, c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
}

// SearchClusterConfig configures one search-index cluster.
type SearchClusterConfig struct {
	// Protocol is http or https.
	Protocol string `yaml:"protocol,omitempty"`

	// Host is the search server hostname.
	Host string `yaml:"host"`

	// Port is the search server port.
	Port int `yaml:"port,omitempty"`

	// APIKey authenticates requests.
	APIKey string `yaml:"api_key,omitempty"`

	// Timeout bounds each search call.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries bounds per-request HTTP retries.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// SetDefaults applies default values.
func (c *SearchClusterConfig) SetDefaults() {
	if c.Protocol == "" {
		c.Protocol = "http"
	}
	if c.Port == 0 {
		c.Port = 8108
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks the cluster configuration.
func (c *SearchClusterConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Protocol != "http" && c.Protocol != "https" {
		return fmt.Errorf("invalid protocol %q (valid: http, https)", c.Protocol)
	}
	return nil
}

// BaseURL returns the cluster's base URL.
func (c *SearchClusterConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}
