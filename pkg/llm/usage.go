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
	"math"
	"math/big"
	"reflect"

	"github.com/itchyny/gojq"
)

// NestedUsageKeys are the metadata keys probed for a nested usage object,
// in priority order.
var NestedUsageKeys = []string{"token_usage", "usage"}

// UsageInfo is the token usage detected on a completion response. It is one
// of DirectUsage, NestedUsage or NoUsage.
type UsageInfo interface {
	usageInfo()
}

// DirectUsage is taken verbatim from the response's direct usage record.
type DirectUsage struct {
	Prompt     int
	Completion int
}

// NestedUsage was found inside the response metadata under Key.
type NestedUsage struct {
	Prompt     int
	Completion int
	Key        string
}

// NoUsage means the provider reported nothing. Completion tokens are
// estimated from Text.
type NoUsage struct {
	Text string
}

func (DirectUsage) usageInfo() {}
func (NestedUsage) usageInfo() {}
func (NoUsage) usageInfo()     {}

// Source returns a short label for the variant, used in logs and metrics.
func Source(info UsageInfo) string {
	switch info.(type) {
	case DirectUsage:
		return "direct"
	case NestedUsage:
		return "nested"
	default:
		return "estimated"
	}
}

// Counters are the running prompt and completion token totals of a run.
type Counters struct {
	Prompt     int
	Completion int
}

// nestedUsageQuery yields [prompt, completion] when the value under $key is an
// object. Sub-fields that are not non-negative integers count as 0.
const nestedUsageQuery = `
def tok(f): (f | if type == "number" and . >= 0 and . == floor then . else 0 end);
.[$key] | if type == "object" then [tok(.prompt_tokens), tok(.completion_tokens)] else empty end
`

var nestedUsageCode = mustCompile(nestedUsageQuery, "$key")

func mustCompile(expr string, vars ...string) *gojq.Code {
	query, err := gojq.Parse(expr)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(query, gojq.WithVariables(vars))
	if err != nil {
		panic(err)
	}
	return code
}

// ClassifyUsage detects which usage shape resp carries. It has no side
// effects and never panics; malformed records are treated as absent.
func ClassifyUsage(resp *CompletionResponse) UsageInfo {
	if resp == nil {
		return NoUsage{}
	}
	if resp.Usage != nil {
		return DirectUsage{
			Prompt:     nonNegative(resp.Usage.InputTokens),
			Completion: nonNegative(resp.Usage.OutputTokens),
		}
	}
	if resp.Metadata != nil {
		for _, key := range NestedUsageKeys {
			if prompt, completion, ok := probeNested(resp.Metadata, key); ok {
				return NestedUsage{Prompt: prompt, Completion: completion, Key: key}
			}
		}
	}
	return NoUsage{Text: resp.Content}
}

// probeNested runs the nested usage query over metadata. Any query error
// (including values of types jq cannot represent) counts as absent.
func probeNested(metadata map[string]any, key string) (prompt, completion int, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	iter := nestedUsageCode.Run(map[string]any{key: normalize(metadata[key])}, key)
	v, found := iter.Next()
	if !found {
		return 0, 0, false
	}
	if _, isErr := v.(error); isErr {
		return 0, 0, false
	}
	pair, isPair := v.([]any)
	if !isPair || len(pair) != 2 {
		return 0, 0, false
	}
	return toInt(pair[0]), toInt(pair[1]), true
}

// normalize rewrites typed maps, slices and numbers (map[string]int, int64,
// uint32, ...) into the map[string]any, []any, int and float64 values gojq
// accepts. Anything else is returned as is and fails the query.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt {
			return int(u)
		}
		return math.MaxInt
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}

// toInt converts a query result to a count, clamping at math.MaxInt.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return nonNegative(n)
	case float64:
		if n >= math.MaxInt {
			return math.MaxInt
		}
		return nonNegative(int(n))
	case *big.Int:
		if n.Sign() < 0 {
			return 0
		}
		if !n.IsInt64() {
			return math.MaxInt
		}
		return nonNegative(int(n.Int64()))
	}
	return 0
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ApplyUsage adds info to counters. For NoUsage the completion count is
// estimated with count over the response text; prompt tokens are never
// estimated here.
func ApplyUsage(info UsageInfo, counters *Counters, count func(string) int) {
	switch u := info.(type) {
	case DirectUsage:
		counters.Prompt += u.Prompt
		counters.Completion += u.Completion
	case NestedUsage:
		counters.Prompt += u.Prompt
		counters.Completion += u.Completion
	case NoUsage:
		if count != nil {
			counters.Completion += nonNegative(count(u.Text))
		}
	}
}

// ExtractUsage classifies resp and applies the result to counters in place.
// The returned variant tells the caller whether a provider-reported record
// existed.
func ExtractUsage(resp *CompletionResponse, counters *Counters, count func(string) int) UsageInfo {
	info := ClassifyUsage(resp)
	ApplyUsage(info, counters, count)
	return info
}
