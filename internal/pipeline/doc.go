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
Package pipeline runs the fetch and classify stages for a single query.

A run moves through four phases, in order and exactly once:

	created -> fetched -> classified -> finalized

Each stage receives the RunState by value and returns the updated copy, so a
stage never mutates state it does not own. The Orchestrator threads the
state through the stages, then finalizes the aggregate token total and the
total elapsed time.

The classify stage never fails the run: when every completion attempt fails
it records the "ERROR" sentinel and the run still finishes with complete
step and timing bookkeeping. A search failure, by contrast, ends the run
with an error.
*/
package pipeline
