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

// Package model_test contains unit tests for the data models. This file
// covers outcome resolution, report flattening and the error taxonomy.
package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

func outcomeWith(states ...model.ArtifactState) *model.BatchOutcome {
	out := &model.BatchOutcome{
		Record:    &model.ProductRecord{ListingID: "L-1", ProductID: "P-1"},
		Artifacts: make(map[model.ArtifactKind]*model.ArtifactOutcome),
	}
	kinds := model.AllKinds()
	for i, state := range states {
		out.Artifacts[kinds[i]] = &model.ArtifactOutcome{Kind: kinds[i], State: state}
	}
	return out
}

// TestResolveStatus verifies the summary status for every combination of
// per-kind terminal states.
func TestResolveStatus(t *testing.T) {
	succeeded := outcomeWith(model.StateUploaded, model.StateUploaded)
	succeeded.Resolve()
	assert.Equal(t, model.StatusSucceeded, succeeded.Status)

	partial := outcomeWith(model.StateUploaded, model.StateGenerationFailed)
	partial.Resolve()
	assert.Equal(t, model.StatusPartial, partial.Status)

	failed := outcomeWith(model.StateUploadFailed, model.StateGenerationFailed)
	failed.Resolve()
	assert.Equal(t, model.StatusFailed, failed.Status)
}

// TestReportRows verifies the report flattens to one row per (product,
// kind) in input order, carrying the batch id and summary status.
func TestReportRows(t *testing.T) {
	first := outcomeWith(model.StateUploaded, model.StateUploaded)
	first.Resolve()
	second := &model.BatchOutcome{
		Record: &model.ProductRecord{ListingID: "L-2", ProductID: "P-2"},
		Artifacts: map[model.ArtifactKind]*model.ArtifactOutcome{
			model.KindVideo: {Kind: model.KindVideo, State: model.StateGenerationFailed, Error: "render failed"},
			model.KindBlog:  {Kind: model.KindBlog, State: model.StateUploaded, Link: "https://drive.example/blog"},
		},
	}
	second.Resolve()

	report := &model.BatchReport{ID: "batch-42", Outcomes: []*model.BatchOutcome{first, second}}
	rows := report.Rows()

	assert.Equal(t, 4, len(rows))
	assert.Equal(t, "batch-42", rows[0].BatchID)
	assert.Equal(t, "L-1", rows[0].ListingID)
	assert.Equal(t, string(model.KindVideo), rows[0].Kind)
	assert.Equal(t, string(model.KindBlog), rows[1].Kind)
	assert.Equal(t, "L-2", rows[2].ListingID)
	assert.Equal(t, "render failed", rows[2].Error)
	assert.Equal(t, string(model.StatusPartial), rows[2].Status)
	assert.Equal(t, "https://drive.example/blog", rows[3].Link)
}

// TestArtifactKindFileExt verifies the upload extensions per kind.
func TestArtifactKindFileExt(t *testing.T) {
	assert.Equal(t, ".mp4", model.KindVideo.FileExt())
	assert.Equal(t, ".txt", model.KindBlog.FileExt())
}

// TestErrorPredicates verifies the errors.As based classification helpers
// see through wrapping.
func TestErrorPredicates(t *testing.T) {
	auth := &model.AuthError{Mode: "oauth_refresh", Err: errors.New("invalid_grant")}
	wrapped := fmt.Errorf("startup failed: %w", auth)
	assert.True(t, model.IsAuthError(wrapped))
	assert.False(t, model.IsAuthError(errors.New("plain")))

	storage := &model.StorageError{Op: "upload-file", Key: "L-1_video.mp4", Err: errors.New("503")}
	assert.True(t, model.IsStorageError(fmt.Errorf("worker: %w", storage)))
	assert.False(t, model.IsStorageError(auth))

	gen := &model.GenerationError{Kind: model.KindBlog, Reason: "empty response"}
	assert.True(t, model.IsGenerationError(fmt.Errorf("kind failed: %w", gen)))
	assert.False(t, model.IsGenerationError(storage))
}
