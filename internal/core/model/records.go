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
// pipeline. This file contains the in-memory representations of product
// listings and the artifacts generated for them. These objects flow through
// the batch workflow: a ProductRecord enters the pipeline, one
// GeneratedArtifact is produced per requested kind, and the per-product
// results are collected into a BatchOutcome.
package model

// ArtifactKind identifies one of the content types the pipeline can produce
// for a product listing.
type ArtifactKind string

const (
	// KindVideo is a short promotional video rendered from the listing's
	// images, title and description.
	KindVideo ArtifactKind = "video"
	// KindBlog is a blog-style article generated from the listing's title
	// and description.
	KindBlog ArtifactKind = "blog"
)

// AllKinds returns the artifact kinds produced for every record in batch
// mode. Order matters: video first, matching the upload order of the
// original listing tool.
func AllKinds() []ArtifactKind {
	return []ArtifactKind{KindVideo, KindBlog}
}

// FileExt returns the file extension used when the artifact of this kind is
// uploaded to the remote store.
func (k ArtifactKind) FileExt() string {
	if k == KindVideo {
		return ".mp4"
	}
	return ".txt"
}

// ProductRecord is the canonical, normalized representation of one product
// row from a batch submission. It is produced by the record normalizer and
// never mutated afterwards.
type ProductRecord struct {
	ListingID   string   `json:"listing_id"`  // Unique within one batch; used as the remote folder name.
	ProductID   string   `json:"product_id"`  // The merchant's product identifier.
	Title       string   `json:"title"`       // The listing title.
	Description string   `json:"description"` // The listing description.
	ImageRefs   []string `json:"image_refs"`  // Ordered image URLs; may be empty.
}

// ProductKey returns the stable identifier used to name the product's remote
// folder and its uploaded files. Listing ids are unique within a batch, so
// the listing id is the key.
func (r *ProductRecord) ProductKey() string {
	return r.ListingID
}

// GeneratedArtifact holds the output of a single generator call. The payload
// is owned by the orchestrator until it is handed to the uploader; it is
// never modified after creation.
type GeneratedArtifact struct {
	Kind        ArtifactKind // Which generator produced this artifact.
	Payload     []byte       // Binary (video) or UTF-8 text (blog) content.
	ContentType string       // MIME type, e.g. "video/mp4" or "text/plain".
}

// FolderHandle describes a resolved remote folder. Handles are cached per
// product key for the duration of a batch run so a run creates at most one
// folder per product.
type FolderHandle struct {
	ID       string `json:"id"`        // The remote store's folder id.
	Name     string `json:"name"`      // The folder name (the product key).
	ParentID string `json:"parent_id"` // The id of the configured root folder.
}

// ArtifactState is the terminal state of one artifact kind for one product.
type ArtifactState string

const (
	StateUploaded         ArtifactState = "uploaded"
	StateGenerationFailed ArtifactState = "generation_failed"
	StateUploadFailed     ArtifactState = "upload_failed"
)

// ArtifactOutcome records the terminal state of a single (product, kind)
// pair, including the remote link on success or the failure reason otherwise.
type ArtifactOutcome struct {
	Kind  ArtifactKind  `json:"kind" bigquery:"kind"`
	State ArtifactState `json:"state" bigquery:"state"`
	Link  string        `json:"link,omitempty" bigquery:"link"`   // Remote URI of the uploaded file, when State == StateUploaded.
	Error string        `json:"error,omitempty" bigquery:"error"` // Failure reason for the failed states.
}

// OutcomeStatus summarizes a product's batch result across all kinds.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded" // Every kind generated and uploaded.
	StatusPartial   OutcomeStatus = "partial"   // At least one kind uploaded, at least one failed.
	StatusFailed    OutcomeStatus = "failed"    // No kind reached the store.
)

// BatchOutcome is the immutable per-product result. It is created once the
// product reaches its terminal state and collected, in input order, into the
// batch report.
type BatchOutcome struct {
	Record    *ProductRecord                    `json:"record"`
	Artifacts map[ArtifactKind]*ArtifactOutcome `json:"artifacts"`
	Status    OutcomeStatus                     `json:"status"`
}

// Resolve computes the summary status from the per-kind outcomes. It is
// called exactly once, when the last kind reaches a terminal state.
func (b *BatchOutcome) Resolve() {
	uploaded, failed := 0, 0
	for _, a := range b.Artifacts {
		if a.State == StateUploaded {
			uploaded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		b.Status = StatusSucceeded
	case uploaded == 0:
		b.Status = StatusFailed
	default:
		b.Status = StatusPartial
	}
}

// NormalizationDrop records a source row that failed schema validation and
// was excluded from the batch. Drops are reported separately from product
// outcomes.
type NormalizationDrop struct {
	RowNumber int    `json:"row_number"` // 1-based position in the source CSV, excluding the header.
	Reason    string `json:"reason"`
}

// BatchReport is the final result of one batch run. Outcomes preserve the
// order of the input records regardless of how the batch was scheduled
// internally.
type BatchReport struct {
	ID       string               `json:"id"` // Unique id for the run, assigned at submission.
	Outcomes []*BatchOutcome      `json:"outcomes"`
	Dropped  []*NormalizationDrop `json:"dropped,omitempty"`
}

// OutcomeRow is the flattened, BigQuery-friendly projection of a single
// (product, kind) result. One BatchOutcome yields one row per artifact kind.
type OutcomeRow struct {
	BatchID   string `bigquery:"batch_id" json:"batch_id"`
	ListingID string `bigquery:"listing_id" json:"listing_id"`
	ProductID string `bigquery:"product_id" json:"product_id"`
	Kind      string `bigquery:"kind" json:"kind"`
	State     string `bigquery:"state" json:"state"`
	Link      string `bigquery:"link" json:"link"`
	Error     string `bigquery:"error" json:"error"`
	Status    string `bigquery:"status" json:"status"`
}

// Rows flattens the report into OutcomeRow values for persistence.
func (r *BatchReport) Rows() []*OutcomeRow {
	out := make([]*OutcomeRow, 0, len(r.Outcomes)*2)
	for _, o := range r.Outcomes {
		for _, kind := range AllKinds() {
			a, ok := o.Artifacts[kind]
			if !ok {
				continue
			}
			out = append(out, &OutcomeRow{
				BatchID:   r.ID,
				ListingID: o.Record.ListingID,
				ProductID: o.Record.ProductID,
				Kind:      string(a.Kind),
				State:     string(a.State),
				Link:      a.Link,
				Error:     a.Error,
				Status:    string(o.Status),
			})
		}
	}
	return out
}
