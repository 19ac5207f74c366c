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

// Package generators produces the content artifacts for a product listing.
// Each generator covers one artifact kind and is an opaque capability to the
// batch orchestrator: records in, payload bytes out, with every failure
// reported as a model.GenerationError scoped to that (product, kind) pair.
package generators

import (
	"context"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// ArtifactGenerator is the contract the batch orchestrator drives. Generate
// must be safe for concurrent use; the worker pool calls it from multiple
// goroutines.
type ArtifactGenerator interface {
	// Kind reports which artifact kind this generator produces.
	Kind() model.ArtifactKind

	// Generate produces the artifact for one product record. Failures are
	// returned as *model.GenerationError and never affect other products
	// or kinds.
	Generate(ctx context.Context, record *model.ProductRecord) (*model.GeneratedArtifact, error)
}
