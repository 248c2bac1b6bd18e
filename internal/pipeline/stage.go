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
)

// Stage is one transition of the run.
type Stage interface {
	// Name identifies the stage in logs, spans and metrics.
	Name() string

	// Run returns the updated state. On error the returned state is the
	// input state unchanged.
	Run(ctx context.Context, state RunState) (RunState, error)
}
