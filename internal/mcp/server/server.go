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

// Package server implements an MCP server that exposes news sentiment
// classification as a tool.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/pipeline"
	"github.com/tombee/newsmood/internal/secrets"
)

// Tool names.
const (
	ToolClassify = "classify_news_sentiment"
	ToolHealth   = "newsmood_health"
)

// Classifier runs one query through the pipeline. *runner.Runner
// satisfies it.
type Classifier interface {
	Run(ctx context.Context, query string) (pipeline.RunState, error)
}

// Server wraps the MCP server and provides the newsmood tools
type Server struct {
	mcpServer   *server.MCPServer
	name        string
	version     string
	classifier  Classifier
	cfg         *config.Config
	resolver    *secrets.Resolver
	rateLimiter *RateLimiter
	logger      *slog.Logger

	runMu sync.Mutex
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name is the server name (default: "newsmood")
	Name string

	// Version is the newsmood version
	Version string

	// Config is reported by the health tool.
	Config *config.Config

	// Resolver is used by the health tool to look for API keys. Optional.
	Resolver *secrets.Resolver

	// RunsPerMinute bounds classify calls. Zero means 10.
	RunsPerMinute int

	// Logger must write to stderr; stdout carries the protocol.
	Logger *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(config ServerConfig, classifier Classifier) (*Server, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if config.Config == nil {
		return nil, errors.New("config is required")
	}
	if config.Name == "" {
		config.Name = "newsmood"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.RunsPerMinute <= 0 {
		config.RunsPerMinute = 10
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		mcpServer:   server.NewMCPServer(config.Name, config.Version),
		name:        config.Name,
		version:     config.Version,
		classifier:  classifier,
		cfg:         config.Config,
		resolver:    config.Resolver,
		rateLimiter: NewRateLimiter(config.RunsPerMinute, 100),
		logger:      logger,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        ToolClassify,
		Description: "Search the web for recent news matching a query and classify the sentiment of the results as POSITIVE or NEGATIVE. Returns the run state as JSON, including token usage and stage timings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("News search query (default: %q)", config.DefaultQuery),
				},
			},
		},
	}, s.handleClassify)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        ToolHealth,
		Description: "Check newsmood configuration: provider, API key availability and tokenizer scheme.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, s.handleHealth)
}

// Run serves the tools over stdio until stdin closes or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting newsmood MCP server", slog.String("version", s.version))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
