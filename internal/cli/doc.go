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

/*
Package cli provides the root command and shared configuration for the
newsmood CLI.

This package creates the main Cobra command and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages and registered in
cmd/newsmood.

# Command Tree

	newsmood
	├── run           Search news and classify their sentiment
	├── tokens        Count tokens with a tokenizer scheme
	├── auth          Store or remove provider API keys
	├── mcp           Serve classification over MCP (stdio)
	├── version       Show version
	└── help          Show help (--json for machine-readable output)

# Global Flags

	--verbose, -v    Enable debug logging
	--quiet, -q      Only log errors
	--json           Output in JSON format
	--config         Path to config file

# Error Handling

Errors are handled centrally to ensure proper exit codes:

  - Exit 0: Success, including runs whose classification gave up
  - Exit 1: Execution failed
  - Exit 2: Invalid configuration
  - Exit 4: Provider or search error
*/
package cli
