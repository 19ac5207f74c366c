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

// Package services contains the read-side business logic over the persisted
// batch data. This file centralizes the BigQuery SQL strings. The queries
// use fmt.Sprintf verbs as placeholders for values injected at runtime.
package services

const (
	// QryOutcomesByBatchId retrieves every flattened outcome row for one
	// batch run, ordered so the per-product kinds group together.
	//
	// Placeholders:
	// - `%s`: the fully qualified name of the outcomes table.
	// - `%s`: the batch run id.
	QryOutcomesByBatchId = "SELECT batch_id, listing_id, product_id, kind, state, link, error, status FROM `%s` WHERE batch_id = '%s' ORDER BY listing_id, kind"
)
