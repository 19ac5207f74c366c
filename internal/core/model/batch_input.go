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

// Package model defines the core data structures for the batch content
// pipeline. This file holds the raw and normalized input forms of a batch.
// Both submission paths (HTTP upload and Pub/Sub trigger) reduce to a
// BatchSource before normalization, so the rest of the pipeline never knows
// how a batch arrived.
package model

// BatchSource is the raw material of one batch run: the product CSV and the
// optional images JSON sidecar.
type BatchSource struct {
	CSV        []byte // The product CSV, including the header row.
	ImagesJSON []byte // Optional image manifest; empty when not supplied.
}

// ImageManifestEntry is one record of the images JSON sidecar. Entries are
// matched to products by listing id and product id.
type ImageManifestEntry struct {
	ListingID string `json:"listingId"`
	ProductID string `json:"productId"`
	Images    []struct {
		ImageURL string `json:"imageURL"`
	} `json:"images"`
}

// NormalizedBatch is the output of the record normalizer: the validated
// records in source order plus the rows that were dropped.
type NormalizedBatch struct {
	Records []*ProductRecord
	Dropped []*NormalizationDrop
}
