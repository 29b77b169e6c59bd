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

// DataConfig names the clusters and collections the tool handlers query.
type DataConfig struct {
	// Cluster names the mongo cluster holding the domain collections.
	Cluster string `yaml:"cluster"`

	// SearchCluster names the search cluster holding the casefile index.
	// Empty disables the casefile search tool.
	SearchCluster string `yaml:"search_cluster,omitempty"`

	// Vessels is the vessel master-data collection.
	Vessels string `yaml:"vessels,omitempty"`

	// Documents is the maintenance/purchase document collection.
	Documents string `yaml:"documents,omitempty"`

	// Casefiles is the casefile search collection name.
	Casefiles string `yaml:"casefiles,omitempty"`
}

// SetDefaults applies default values.
func (c *DataConfig) SetDefaults() {
	if c.Vessels == "" {
		c.Vessels = "vessels"
	}
	if c.Documents == "" {
		c.Documents = "vessel_documents"
	}
	if c.Casefiles == "" {
		c.Casefiles = "casefiles"
	}
}

// Validate checks the data configuration.
func (c *DataConfig) Validate() error {
	if c.Cluster == "" {
		return fmt.Errorf("cluster is required")
	}
	return nil
}
