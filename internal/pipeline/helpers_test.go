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

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/tombee/newsmood/pkg/llm"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// scriptedProvider fails failCount times, then returns resp.
type scriptedProvider struct {
	failCount int
	resp      *llm.CompletionResponse
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	p.prompts = append(p.prompts, req.Messages[len(req.Messages)-1].Content)
	if p.failCount < 0 || p.calls <= p.failCount {
		return nil, errors.New("upstream unavailable")
	}
	return p.resp, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newInvoker(p llm.Provider) *llm.Invoker {
	return llm.NewInvoker(p, llm.WithSleep(noSleep))
}

// fakeClock advances by step on every reading.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0), step: 5 * time.Millisecond}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	c.now = c.now.Add(c.step)
	return c.now.Sub(t)
}

// approxCount is the estimator used throughout these tests.
func approxCount(text string) int {
	n, _ := tokenizer.Approx{}.CountTokens(text, tokenizer.ApproxScheme)
	return n
}
