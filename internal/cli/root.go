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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/newsmood/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for newsmood
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsmood",
		Short: "newsmood - news sentiment from the command line",
		Long: `newsmood searches the web for recent news and asks a language model
whether the result is POSITIVE or NEGATIVE. Each run reports the news it
found, the executed steps, token usage and stage timings.

Run 'newsmood run' to classify the default query.
Run 'newsmood auth set-key groq' to store a Groq API key.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	shared.BindGlobalFlags(cmd.PersistentFlags())
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
