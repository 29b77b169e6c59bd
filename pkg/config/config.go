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

// Package config holds the fleetgate configuration model and loader.
package config

import (
	"fmt"
)

// Config is the root fleetgate configuration.
type Config struct {
	// Name identifies this deployment in logs.
	Name string `yaml:"name,omitempty"`

	// Mongo maps logical cluster names to document-store clusters.
	Mongo map[string]MongoClusterConfig `yaml:"mongo"`

	// Search maps logical cluster names to search-index clusters.
	Search map[string]SearchClusterConfig `yaml:"search"`

	// Tenancy configures tenant resolution and caching.
	Tenancy TenancyConfig `yaml:"tenancy"`

	// Data names the clusters and collections served by the tools.
	Data DataConfig `yaml:"data"`

	// Server configures the MCP server and the status listener.
	Server ServerConfig `yaml:"server,omitempty"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "fleetgate"
	}
	for name, mc := range c.Mongo {
		mc.SetDefaults()
		c.Mongo[name] = mc
	}
	for name, sc := range c.Search {
		sc.SetDefaults()
		c.Search[name] = sc
	}
	c.Tenancy.SetDefaults()
	if c.Data.Cluster == "" {
		c.Data.Cluster = c.Tenancy.Cluster
	}
	c.Data.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Mongo) == 0 {
		return fmt.Errorf("at least one mongo cluster is required")
	}
	for name, mc := range c.Mongo {
		if err := mc.Validate(); err != nil {
			return fmt.Errorf("mongo cluster '%s': %w", name, err)
		}
	}
	for name, sc := range c.Search {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("search cluster '%s': %w", name, err)
		}
	}
	if err := c.Tenancy.Validate(); err != nil {
		return fmt.Errorf("tenancy: %w", err)
	}
	if _, ok := c.Mongo[c.Tenancy.Cluster]; !ok {
		return fmt.Errorf("tenancy: cluster '%s' is not a configured mongo cluster", c.Tenancy.Cluster)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, ok := c.Mongo[c.Data.Cluster]; !ok {
		return fmt.Errorf("data: cluster '%s' is not a configured mongo cluster", c.Data.Cluster)
	}
	if c.Data.SearchCluster != "" {
		if _, ok := c.Search[c.Data.SearchCluster]; !ok {
			return fmt.Errorf("data: search cluster '%s' is not a configured search cluster", c.Data.SearchCluster)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
