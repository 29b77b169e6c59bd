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

import "fmt"

// TenancyConfig configures tenant resolution and caching.
type TenancyConfig struct {
	// Cluster names the mongo cluster holding the tenant collection.
	Cluster string `yaml:"cluster"`

	// Database holding the tenant collection. Defaults to the cluster's
	// default database when empty.
	Database string `yaml:"database,omitempty"`

	// Collection holding one document per tenant: {name, imos: [...]}.
	Collection string `yaml:"collection,omitempty"`

	// CacheFile mirrors resolved fleets to disk so a restart without
	// backend access still has a last-known-good set. Empty disables the
	// file mirror.
	CacheFile string `yaml:"cache_file,omitempty"`

	// BypassMarkers are matched case-insensitively as substrings of the
	// tenant name; a match grants unrestricted access.
	BypassMarkers []string `yaml:"bypass_markers,omitempty"`
}

// SetDefaults applies default values.
func (c *TenancyConfig) SetDefaults() {
	if c.Collection == "" {
		c.Collection = "company_vessels"
	}
	if len(c.BypassMarkers) == 0 {
		c.BypassMarkers = []string{"syia", "admin", "internal"}
	}
}

// Validate checks the tenancy configuration.
func (c *TenancyConfig) Validate() error {
	if c.Cluster == "" {
		return fmt.Errorf("cluster is required")
	}
	return nil
}
