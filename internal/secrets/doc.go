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
Package secrets resolves provider API keys.

Keys are looked up in order: the value from the config file, a provider
specific environment variable (GROQ_API_KEY), then the system keychain under
the "newsmood" service. Only the keychain is writable; "newsmood auth
set-key" stores keys there.
*/
package secrets
