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

// Package server runs the MCP server over stdio or streamable HTTP, plus an
// optional status sidecar exposing health and metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/syia/fleetgate"
	"github.com/syia/fleetgate/pkg/backends"
	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/observability"
	"github.com/syia/fleetgate/pkg/tools"
)

// Server bundles the MCP server with its status sidecar.
type Server struct {
	cfg      config.ServerConfig
	mcp      *mcpserver.MCPServer
	backends *backends.Registry
	metrics  *observability.Metrics

	status *http.Server
}

// New builds the server and registers the toolset on it.
func New(cfg config.ServerConfig, name string, toolset *tools.Toolset, reg *backends.Registry, metrics *observability.Metrics) *Server {
	mcpServer := mcpserver.NewMCPServer(
		name,
		fleetgate.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	toolset.Register(mcpServer)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		backends: reg,
		metrics:  metrics,
	}
}

// Run serves until ctx is canceled or the transport fails, then shuts the
// sidecar down. Closing backend connections is the caller's job.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.StatusListen != "" {
		s.startStatus()
	}
	defer s.stopStatus()

	switch s.cfg.Transport {
	case config.TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return s.runStdio(ctx)
	}
}

func (s *Server) runStdio(ctx context.Context) error {
	slog.Info("Serving MCP over stdio")

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(s.mcp)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (s *Server) runHTTP(ctx context.Context) error {
	slog.Info("Serving MCP over streamable HTTP", "listen", s.cfg.Listen)

	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(s.cfg.Listen)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) startStatus() {
	s.status = &http.Server{
		Addr:    s.cfg.StatusListen,
		Handler: s.statusRouter(),
	}
	go func() {
		slog.Info("Status listener started", "listen", s.cfg.StatusListen)
		if err := s.status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status listener failed", "error", err)
		}
	}()
}

func (s *Server) stopStatus() {
	if s.status == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.status.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Status listener shutdown failed", "error", err)
	}
}
