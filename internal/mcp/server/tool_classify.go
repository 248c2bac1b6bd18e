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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/newsmood/internal/log"
)

// ClassifyToolResult is the JSON payload of a classify call.
type ClassifyToolResult struct {
	State any    `json:"state"`
	Error string `json:"error,omitempty"`
}

// handleClassify implements the classify_news_sentiment tool. Calls are
// serialised; each one is a complete run.
func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() || !s.rateLimiter.AllowRun() {
		return errorResponse("Rate limit exceeded. Please try again later."), nil
	}

	query := strings.TrimSpace(request.GetString("query", ""))

	s.runMu.Lock()
	state, err := s.classifier.Run(ctx, query)
	s.runMu.Unlock()

	logger := log.WithRun(s.logger, state.RunID)
	result := ClassifyToolResult{State: state}
	if err != nil {
		logger.Warn("classify tool run failed", slog.Any("error", err))
		result.Error = err.Error()
	} else {
		logger.Info("classify tool run completed", slog.String("sentiment", state.Sentiment))
	}

	resultJSON, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		return errorResponse(fmt.Sprintf("Failed to encode run state: %v", merr)), nil
	}
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(resultJSON))},
			IsError: true,
		}, nil
	}
	return textResponse(string(resultJSON)), nil
}
