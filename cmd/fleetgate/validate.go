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

package main

import (
	"context"
	"fmt"

	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/config/provider"
)

// ValidateCmd validates the configuration file and reports what it defines.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := config.LoadConfig(context.Background(), provider.ProviderConfig{
		Type: provider.TypeFile,
		Path: cli.Config,
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	defer loader.Close()

	fmt.Printf("Configuration OK: %s\n", cli.Config)
	fmt.Printf("  name:            %s\n", cfg.Name)
	fmt.Printf("  mongo clusters:  %d\n", len(cfg.Mongo))
	fmt.Printf("  search clusters: %d\n", len(cfg.Search))
	fmt.Printf("  tenancy cluster: %s (collection %s)\n", cfg.Tenancy.Cluster, cfg.Tenancy.Collection)
	fmt.Printf("  transport:       %s\n", cfg.Server.Transport)
	return nil
}
