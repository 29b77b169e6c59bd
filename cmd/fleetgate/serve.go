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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syia/fleetgate/pkg/component"
	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/config/provider"
	"github.com/syia/fleetgate/pkg/server"
)

// ServeCmd starts the MCP server.
type ServeCmd struct {
	Watch bool `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, loader, err := config.LoadConfig(ctx, provider.ProviderConfig{
		Type: provider.TypeFile,
		Path: cli.Config,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer loader.Close()

	if c.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	mgr, err := component.NewManager(cfg)
	if err != nil {
		return err
	}
	mgr.Start(ctx)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := mgr.Close(closeCtx); err != nil {
			slog.Warn("Backend shutdown reported errors", "error", err)
		}
	}()

	srv := server.New(cfg.Server, cfg.Name, mgr.Toolset(), mgr.Backends(), mgr.Metrics())
	slog.Info("fleetgate starting",
		"name", cfg.Name,
		"transport", cfg.Server.Transport,
		"mongo_clusters", len(cfg.Mongo),
		"search_clusters", len(cfg.Search))
	return srv.Run(ctx)
}
