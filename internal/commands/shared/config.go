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
	"log/slog"

	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/log"
)

// LoadConfig loads configuration from --config (or the default location)
// and applies the global verbosity flags to it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewInvalidConfigError("failed to load configuration", err)
	}
	switch {
	case GetVerbose():
		cfg.Log.Level = "debug"
	case GetQuiet():
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// NewLogger builds the stderr logger described by cfg.
func NewLogger(cfg *config.Config) *slog.Logger {
	lc := log.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = log.Format(cfg.Log.Format)
	lc.AddSource = cfg.Log.AddSource
	return log.New(lc)
}
