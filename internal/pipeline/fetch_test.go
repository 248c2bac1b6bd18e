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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/newsmood/internal/search"
)

type failingSearcher struct{ err error }

func (f failingSearcher) Name() string { return "failing" }

func (f failingSearcher) Search(ctx context.Context, query string) (string, error) {
	return "", f.err
}

func TestFetch_WritesNews(t *testing.T) {
	stage := NewFetchStage(search.NewStatic(sampleNews), newFakeClock(), nil, nil)

	out, err := stage.Run(context.Background(), NewRunState("inflação no Brasil"))
	require.NoError(t, err)

	assert.Equal(t, sampleNews, out.News)
	assert.Equal(t, []string{StepFetched}, out.Steps)
	assert.Equal(t, 5.0, out.Metrics[MetricFetchMS])
	assert.Zero(t, out.TokensPrompt)
	assert.Zero(t, out.TokensCompletion)
	assert.Equal(t, PhaseFetched, out.Phase)
}

func TestFetch_CountsSearchTokens(t *testing.T) {
	stage := NewFetchStage(search.NewStatic(sampleNews), newFakeClock(), nil, approxCount)

	out, err := stage.Run(context.Background(), NewRunState("inflação no Brasil"))
	require.NoError(t, err)

	assert.Equal(t, approxCount("inflação no Brasil"), out.TokensPrompt)
	assert.Equal(t, approxCount(sampleNews), out.TokensCompletion)
}

func TestFetch_ErrorLeavesStateUnchanged(t *testing.T) {
	cause := errors.New("network down")
	stage := NewFetchStage(failingSearcher{err: cause}, newFakeClock(), nil, nil)

	in := NewRunState("q")
	out, err := stage.Run(context.Background(), in)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, in, out)
	assert.Empty(t, out.Steps)
}
