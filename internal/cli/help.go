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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/newsmood/internal/commands/shared"
)

// HelpResponse is "newsmood help --json": every runnable command below the
// requested one, plus what a script needs to drive newsmood.
type HelpResponse struct {
	shared.JSONResponse
	Commands    []CommandHelp  `json:"commands"`
	GlobalFlags []FlagHelp     `json:"global_flags"`
	ExitCodes   map[string]int `json:"exit_codes"`
	ConfigEnv   string         `json:"config_env"`
}

// CommandHelp describes one command by its full path, e.g. "newsmood auth set-key".
type CommandHelp struct {
	Path  string     `json:"path"`
	Short string     `json:"short"`
	Usage string     `json:"usage"`
	Flags []FlagHelp `json:"flags,omitempty"`
}

type FlagHelp struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Default   string `json:"default,omitempty"`
	Usage     string `json:"usage"`
}

var exitCodes = map[string]int{
	"success":          shared.ExitSuccess,
	"execution_failed": shared.ExitExecutionFailed,
	"invalid_config":   shared.ExitInvalidConfig,
	"provider_error":   shared.ExitProviderError,
}

// NewHelpCommand replaces cobra's help command with one that also speaks JSON.
func NewHelpCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Show help for newsmood or one of its commands.

With --json the command tree, exit codes and config variable are printed
as a single JSON document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := rootCmd
			if len(args) > 0 {
				found, _, err := rootCmd.Find(args)
				if err != nil || found == rootCmd {
					return fmt.Errorf("unknown command %q", args[0])
				}
				target = found
			}
			if !shared.GetJSON() {
				return target.Help()
			}
			return shared.EmitJSONTo(cmd.OutOrStdout(), buildHelp(rootCmd, target))
		},
	}
}

func buildHelp(rootCmd, target *cobra.Command) HelpResponse {
	return HelpResponse{
		JSONResponse: shared.JSONResponse{
			Version: "1.0",
			Command: "help",
			Success: true,
		},
		Commands:    collectCommands(target, nil),
		GlobalFlags: flagHelp(rootCmd.PersistentFlags()),
		ExitCodes:   exitCodes,
		ConfigEnv:   shared.ConfigEnvVar,
	}
}

// collectCommands walks cmd depth first and keeps the runnable, visible ones.
func collectCommands(cmd *cobra.Command, acc []CommandHelp) []CommandHelp {
	if cmd.Hidden || cmd.Name() == "help" {
		return acc
	}
	if cmd.Runnable() {
		acc = append(acc, CommandHelp{
			Path:  cmd.CommandPath(),
			Short: cmd.Short,
			Usage: cmd.UseLine(),
			Flags: flagHelp(cmd.LocalNonPersistentFlags()),
		})
	}
	for _, sub := range cmd.Commands() {
		acc = collectCommands(sub, acc)
	}
	return acc
}

func flagHelp(fs *pflag.FlagSet) []FlagHelp {
	var flags []FlagHelp
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		def := f.DefValue
		if def == "false" || def == "[]" {
			def = ""
		}
		flags = append(flags, FlagHelp{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Default:   def,
			Usage:     f.Usage,
		})
	})
	return flags
}
