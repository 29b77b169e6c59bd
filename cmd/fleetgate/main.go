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

// Command fleetgate serves tenant-scoped fleet data over MCP.
//
// Usage:
//
//	fleetgate serve --config config.yaml
//	fleetgate validate --config config.yaml
//	fleetgate cache-clear --config config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/syia/fleetgate"
	"github.com/syia/fleetgate/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version    VersionCmd    `cmd:"" help:"Show version information."`
	Serve      ServeCmd      `cmd:"" help:"Start the MCP server."`
	Validate   ValidateCmd   `cmd:"" help:"Validate configuration file."`
	CacheClear CacheClearCmd `cmd:"" name:"cache-clear" help:"Drop the resolved fleet cache."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"fleetgate.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(fleetgate.GetVersion().String())
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("fleetgate"),
		kong.Description("Tenant-scoped fleet data gateway over MCP"),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
