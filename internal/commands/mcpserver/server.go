// Copyright 2025 Tom Barlow
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

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/newsmood/internal/commands/shared"
	"github.com/tombee/newsmood/internal/log"
	"github.com/tombee/newsmood/internal/mcp/server"
	"github.com/tombee/newsmood/internal/runner"
	"github.com/tombee/newsmood/internal/secrets"
)

// NewCommand creates the mcp command
func NewCommand() *cobra.Command {
	var runsPerMinute int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve sentiment classification over MCP",
		Long: `Start the newsmood MCP (Model Context Protocol) server on stdio.

The server exposes these tools:
  - classify_news_sentiment: search news for a query and classify it
  - newsmood_health: check provider, API key and tokenizer configuration

Calls are served one at a time. Logs go to stderr; stdout carries the
protocol.

Configuration example for an MCP client:
  {
    "mcpServers": {
      "newsmood": {
        "command": "newsmood",
        "args": ["mcp"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd, runsPerMinute)
		},
	}

	cmd.Flags().IntVar(&runsPerMinute, "runs-per-minute", 10, "Maximum classify calls per minute")
	return cmd
}

func runMCPServer(cmd *cobra.Command, runsPerMinute int) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	logger := log.WithComponent(shared.NewLogger(cfg), "mcp")
	versionStr, _, _ := shared.GetVersion()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resolver := secrets.NewDefaultResolver()
	r, err := runner.New(ctx, cfg, logger, runner.WithVersion(versionStr), runner.WithResolver(resolver))
	if err != nil {
		return shared.Classify("failed to set up runner", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := r.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	srv, err := server.NewServer(server.ServerConfig{
		Version:       versionStr,
		Config:        cfg,
		Resolver:      resolver,
		RunsPerMinute: runsPerMinute,
		Logger:        logger,
	}, r)
	if err != nil {
		return shared.NewExecutionError("failed to create MCP server", err)
	}

	if err := srv.Run(ctx); err != nil {
		return shared.NewExecutionError("MCP server error", err)
	}
	return nil
}
