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

// Package tokens implements the tokens command, which counts tokens the
// same way a run does.
package tokens

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/newsmood/internal/commands/shared"
	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// Result is the JSON output of the tokens command.
type Result struct {
	shared.JSONResponse
	Scheme string `json:"scheme"`
	Tokens int    `json:"tokens"`
	Chars  int    `json:"chars"`
}

// NewCommand creates the tokens command
func NewCommand() *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:   "tokens <text>",
		Short: "Count the tokens of a text",
		Long: `Count tokens with the scheme used for run accounting.

The scheme is a model name (gpt-4o-mini, gpt-4), a BPE encoding
(o200k_base, cl100k_base) or "approx" for the four-bytes-per-token estimate.
It defaults to tokenizer.scheme from the config file.

Use "-" to read the text from stdin.

Examples:
  newsmood tokens "Inflação cai para 4,2% em março"
  newsmood tokens --scheme cl100k_base "hello world"
  cat noticia.txt | newsmood tokens -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args, scheme)
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "", "Tokenizer scheme (default from config)")
	return cmd
}

func runTokens(cmd *cobra.Command, args []string, scheme string) error {
	if scheme == "" {
		cfg, err := shared.LoadConfig()
		if err != nil {
			return err
		}
		scheme = cfg.Tokenizer.Scheme
	}

	text := strings.Join(args, " ")
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return shared.NewExecutionError("failed to read stdin", err)
		}
		text = string(data)
	}

	count, err := tokenizer.Bind(tokenizer.NewMulti(), scheme)
	if err != nil {
		return shared.NewInvalidConfigError("unknown tokenizer scheme",
			&nmerrors.ConfigError{Key: "tokenizer.scheme", Reason: err.Error(), Cause: err})
	}
	n := count(text)

	if shared.GetJSON() {
		return shared.EmitJSONTo(cmd.OutOrStdout(), Result{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "tokens", Success: true},
			Scheme:       scheme,
			Tokens:       n,
			Chars:        len([]rune(text)),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", n, shared.RenderLabel("tokens ("+scheme+")"))
	return nil
}
