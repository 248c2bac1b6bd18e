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

package shared

import (
	"os"

	"github.com/spf13/pflag"
)

// ConfigEnvVar names the config file when --config is not given.
const ConfigEnvVar = "NEWSMOOD_CONFIG"

// Globals are the persistent flags every newsmood command reads.
type Globals struct {
	Verbose bool
	Quiet   bool
	JSON    bool
	Config  string
}

var (
	globals Globals

	// set from ldflags through cli.SetVersion
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// BindGlobalFlags registers --verbose, --quiet, --json and --config on fs.
// Binding resets the values to their defaults.
func BindGlobalFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&globals.Verbose, "verbose", "v", false, "Log debug output to stderr")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Only print the report and errors")
	fs.BoolVar(&globals.JSON, "json", false, "Print results as JSON")
	fs.StringVar(&globals.Config, "config", "", "Config file (default: $"+ConfigEnvVar+" or ~/.config/newsmood/config.yaml)")
}

// SetVersion records build information.
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

func GetVerbose() bool { return globals.Verbose }

func GetQuiet() bool { return globals.Quiet }

func GetJSON() bool { return globals.JSON }

// GetConfigPath returns --config, then $NEWSMOOD_CONFIG. Empty means the
// XDG default.
func GetConfigPath() string {
	if globals.Config != "" {
		return globals.Config
	}
	return os.Getenv(ConfigEnvVar)
}
