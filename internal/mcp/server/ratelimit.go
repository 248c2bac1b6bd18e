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
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds MCP tool calls. Classify runs cost a search request
// and a completion, so they get their own, smaller bucket.
type RateLimiter struct {
	runs  *rate.Limiter
	calls *rate.Limiter
}

// NewRateLimiter allows runsPerMinute classify calls and callsPerMinute
// calls of any tool, each with a full burst available up front.
func NewRateLimiter(runsPerMinute, callsPerMinute int) *RateLimiter {
	return &RateLimiter{
		runs:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(runsPerMinute)), runsPerMinute),
		calls: rate.NewLimiter(rate.Every(time.Minute/time.Duration(callsPerMinute)), callsPerMinute),
	}
}

// AllowRun reports whether a classify call may proceed.
func (rl *RateLimiter) AllowRun() bool {
	return rl.runs.Allow()
}

// AllowCall reports whether any tool call may proceed.
func (rl *RateLimiter) AllowCall() bool {
	return rl.calls.Allow()
}
