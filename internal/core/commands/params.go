// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete pipeline steps of the batch
// workflows. This file defines the shared context parameter keys.
package commands

// GetBatchIDParamName returns the context key under which the submission
// layer stores the batch run id. Every command that stamps output with the
// run id reads this key.
func GetBatchIDParamName() string {
	return "__BATCH_ID__"
}
