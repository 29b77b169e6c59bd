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
	"github.com/syia/fleetgate/pkg/tenant"
)

// CacheClearCmd drops the resolved fleet cache so the next resolution of
// every tenant goes back to the backend.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(cli *CLI) error {
	cfg, loader, err := config.LoadConfig(context.Background(), provider.ProviderConfig{
		Type: provider.TypeFile,
		Path: cli.Config,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer loader.Close()

	cache, err := tenant.NewCache(cfg.Tenancy.CacheFile)
	if err != nil {
		return err
	}
	if err := cache.Clear(); err != nil {
		return err
	}

	if cfg.Tenancy.CacheFile == "" {
		fmt.Println("No fleet cache file configured; nothing to clear.")
		return nil
	}
	fmt.Printf("Fleet cache cleared: %s\n", cfg.Tenancy.CacheFile)
	return nil
}
