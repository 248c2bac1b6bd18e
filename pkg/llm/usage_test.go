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

package llm

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byteCount is a deterministic stand-in tokenizer.
func byteCount(s string) int { return len(s) }

func TestClassifyUsage(t *testing.T) {
	tests := []struct {
		name string
		resp *CompletionResponse
		want UsageInfo
	}{
		{
			name: "nil response",
			resp: nil,
			want: NoUsage{},
		},
		{
			name: "direct usage",
			resp: &CompletionResponse{Content: "POSITIVE", Usage: &TokenUsage{InputTokens: 40, OutputTokens: 3}},
			want: DirectUsage{Prompt: 40, Completion: 3},
		},
		{
			name: "direct usage missing output",
			resp: &CompletionResponse{Usage: &TokenUsage{InputTokens: 7}},
			want: DirectUsage{Prompt: 7},
		},
		{
			name: "direct usage wins over metadata",
			resp: &CompletionResponse{
				Usage:    &TokenUsage{InputTokens: 1, OutputTokens: 2},
				Metadata: map[string]any{"token_usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 200}},
			},
			want: DirectUsage{Prompt: 1, Completion: 2},
		},
		{
			name: "nested token_usage",
			resp: &CompletionResponse{
				Content:  "NEGATIVE",
				Metadata: map[string]any{"token_usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 2}},
			},
			want: NestedUsage{Prompt: 12, Completion: 2, Key: "token_usage"},
		},
		{
			name: "nested usage",
			resp: &CompletionResponse{
				Metadata: map[string]any{"usage": map[string]any{"prompt_tokens": 5}},
			},
			want: NestedUsage{Prompt: 5, Completion: 0, Key: "usage"},
		},
		{
			name: "token_usage preferred over usage",
			resp: &CompletionResponse{
				Metadata: map[string]any{
					"usage":       map[string]any{"prompt_tokens": 1, "completion_tokens": 1},
					"token_usage": map[string]any{"prompt_tokens": 9, "completion_tokens": 8},
				},
			},
			want: NestedUsage{Prompt: 9, Completion: 8, Key: "token_usage"},
		},
		{
			name: "non-object token_usage falls through to usage",
			resp: &CompletionResponse{
				Metadata: map[string]any{
					"token_usage": "n/a",
					"usage":       map[string]any{"prompt_tokens": 3, "completion_tokens": 4},
				},
			},
			want: NestedUsage{Prompt: 3, Completion: 4, Key: "usage"},
		},
		{
			name: "ill-typed sub-fields count as zero",
			resp: &CompletionResponse{
				Metadata: map[string]any{"usage": map[string]any{"prompt_tokens": "lots", "completion_tokens": 2.5}},
			},
			want: NestedUsage{Key: "usage"},
		},
		{
			name: "metadata without usage",
			resp: &CompletionResponse{Content: "POSITIVE", Metadata: map[string]any{"model": "x"}},
			want: NoUsage{Text: "POSITIVE"},
		},
		{
			name: "nothing at all",
			resp: &CompletionResponse{Content: "POSITIVE"},
			want: NoUsage{Text: "POSITIVE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUsage(tt.resp))
		})
	}
}

func TestClassifyUsage_DecodedJSON(t *testing.T) {
	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"token_usage":{"prompt_tokens":40,"completion_tokens":3,"total_tokens":43}}`), &meta))

	info := ClassifyUsage(&CompletionResponse{Metadata: meta})
	assert.Equal(t, NestedUsage{Prompt: 40, Completion: 3, Key: "token_usage"}, info)
}

func TestClassifyUsage_UnsupportedMetadataTypes(t *testing.T) {
	type opaque struct{ N int }
	resp := &CompletionResponse{
		Content:  "x",
		Metadata: map[string]any{"token_usage": opaque{N: 1}},
	}
	assert.NotPanics(t, func() {
		assert.Equal(t, NoUsage{Text: "x"}, ClassifyUsage(resp))
	})
}

func TestClassifyUsage_TypedMaps(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  UsageInfo
	}{
		{"map[string]int", map[string]int{"prompt_tokens": 40, "completion_tokens": 3},
			NestedUsage{Prompt: 40, Completion: 3, Key: "token_usage"}},
		{"map[string]int64", map[string]int64{"prompt_tokens": 7, "completion_tokens": 1},
			NestedUsage{Prompt: 7, Completion: 1, Key: "token_usage"}},
		{"map[string]uint32", map[string]uint32{"prompt_tokens": 9},
			NestedUsage{Prompt: 9, Key: "token_usage"}},
		{"non-string keys", map[int]int{1: 2}, NoUsage{Text: "POSITIVE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &CompletionResponse{Content: "POSITIVE", Metadata: map[string]any{"token_usage": tt.value}}
			assert.Equal(t, tt.want, ClassifyUsage(resp))
		})
	}
}

func TestClassifyUsage_LargeCounts(t *testing.T) {
	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"usage":{"prompt_tokens":5000000000,"completion_tokens":1e30}}`), &meta))

	info := ClassifyUsage(&CompletionResponse{Metadata: meta})
	assert.Equal(t, NestedUsage{Prompt: 5_000_000_000, Completion: math.MaxInt, Key: "usage"}, info,
		"counts above 32 bits are kept and overflow clamps")

	info = ClassifyUsage(&CompletionResponse{Metadata: map[string]any{
		"usage": map[string]uint64{"prompt_tokens": math.MaxUint64},
	}})
	assert.Equal(t, NestedUsage{Prompt: math.MaxInt, Key: "usage"}, info)
}

func TestExtractUsage_Deltas(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		c := Counters{Prompt: 10, Completion: 5}
		info := ExtractUsage(&CompletionResponse{Content: "POSITIVE", Usage: &TokenUsage{InputTokens: 40, OutputTokens: 3}}, &c, byteCount)
		assert.IsType(t, DirectUsage{}, info)
		assert.Equal(t, Counters{Prompt: 50, Completion: 8}, c)
	})

	t.Run("nested", func(t *testing.T) {
		var c Counters
		info := ExtractUsage(&CompletionResponse{
			Content:  "POSITIVE",
			Metadata: map[string]any{"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 1}},
		}, &c, byteCount)
		assert.IsType(t, NestedUsage{}, info)
		assert.Equal(t, Counters{Prompt: 12, Completion: 1}, c)
	})

	t.Run("estimated completion only", func(t *testing.T) {
		var c Counters
		info := ExtractUsage(&CompletionResponse{Content: "POSITIVE"}, &c, byteCount)
		assert.IsType(t, NoUsage{}, info)
		assert.Equal(t, Counters{Prompt: 0, Completion: len("POSITIVE")}, c)
	})

	t.Run("nil counter func", func(t *testing.T) {
		var c Counters
		ExtractUsage(&CompletionResponse{Content: "POSITIVE"}, &c, nil)
		assert.Equal(t, Counters{}, c)
	})
}

func TestSource(t *testing.T) {
	assert.Equal(t, "direct", Source(DirectUsage{}))
	assert.Equal(t, "nested", Source(NestedUsage{}))
	assert.Equal(t, "estimated", Source(NoUsage{}))
}
