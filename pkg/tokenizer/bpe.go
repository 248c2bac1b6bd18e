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

package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// encodings lists the encoding names accepted directly as schemes.
var encodings = map[string]tokenizer.Encoding{
	"o200k_base":  tokenizer.O200kBase,
	"cl100k_base": tokenizer.Cl100kBase,
	"p50k_base":   tokenizer.P50kBase,
	"p50k_edit":   tokenizer.P50kEdit,
	"r50k_base":   tokenizer.R50kBase,
}

// modelPrefixes maps model name prefixes to encodings. Longer prefixes come
// first so "gpt-4o" wins over "gpt-4".
var modelPrefixes = []struct {
	prefix   string
	encoding tokenizer.Encoding
}{
	{"gpt-4.1", tokenizer.O200kBase},
	{"gpt-4o", tokenizer.O200kBase},
	{"gpt-5", tokenizer.O200kBase},
	{"o1", tokenizer.O200kBase},
	{"o3", tokenizer.O200kBase},
	{"o4", tokenizer.O200kBase},
	{"gpt-4", tokenizer.Cl100kBase},
	{"gpt-3.5-turbo", tokenizer.Cl100kBase},
	{"gpt-35-turbo", tokenizer.Cl100kBase},
	{"text-embedding-3", tokenizer.Cl100kBase},
	{"text-embedding-ada-002", tokenizer.Cl100kBase},
	{"text-davinci-003", tokenizer.P50kBase},
	{"text-davinci-002", tokenizer.P50kBase},
	{"code-davinci", tokenizer.P50kBase},
	{"davinci", tokenizer.R50kBase},
	{"curie", tokenizer.R50kBase},
	{"babbage", tokenizer.R50kBase},
	{"ada", tokenizer.R50kBase},
}

// BPE counts tokens with the tiktoken byte-pair encodings. Codecs are loaded
// lazily and cached per encoding.
type BPE struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewBPE creates an empty BPE counter.
func NewBPE() *BPE {
	return &BPE{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// CountTokens implements Counter.
func (b *BPE) CountTokens(text, scheme string) (int, error) {
	enc, err := ResolveEncoding(scheme)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}

	codec, err := b.codec(enc)
	if err != nil {
		return 0, err
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("tokenizer: encode with %s: %w", enc, err)
	}
	return len(ids), nil
}

func (b *BPE) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.codecs[enc]; ok {
		return c, nil
	}
	c, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load %s: %w", enc, err)
	}
	b.codecs[enc] = c
	return c, nil
}

// ResolveEncoding maps a scheme, either an encoding name or a model name, to
// its encoding.
func ResolveEncoding(scheme string) (tokenizer.Encoding, error) {
	s := strings.ToLower(strings.TrimSpace(scheme))
	if enc, ok := encodings[s]; ok {
		return enc, nil
	}
	for _, mp := range modelPrefixes {
		if strings.HasPrefix(s, mp.prefix) {
			return mp.encoding, nil
		}
	}
	return "", &UnknownSchemeError{Scheme: scheme}
}
