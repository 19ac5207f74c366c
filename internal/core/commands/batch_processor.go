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
// workflows. This file defines the batch processor, the orchestrator at the
// heart of the pipeline.
//
// Logic Flow:
//  1. The normalized records are distributed to a worker pool over a jobs
//     channel; pool size comes from configuration.
//  2. Each worker drives one product at a time through the per-kind state
//     machine: generate, resolve the product's folder, upload. A failure in
//     one kind is terminal for that kind only; the worker moves on to the
//     next kind, and other products are never affected.
//  3. Results carry their input index, so the report lists outcomes in
//     source order no matter how the pool interleaved the work.
//
// The one exception to failure isolation is credential failure. An
// AuthError from the store means every remaining upload would fail the same
// way, so the processor cancels the pool and fails the whole run.
package commands

import (
	goctx "context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/generators"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// ArtifactStore is the slice of the remote store the processor needs.
// Declared here so tests can drive the processor with a fake store.
type ArtifactStore interface {
	ResolveFolder(ctx goctx.Context, key string) (*model.FolderHandle, error)
	UploadFile(ctx goctx.Context, folderID string, name string, mimeType string, data []byte) (string, error)
}

// BatchProcessor runs the generate-and-upload state machine for every
// record of a normalized batch.
type BatchProcessor struct {
	cor.BaseCommand
	store           ArtifactStore
	generators      []generators.ArtifactGenerator
	numberOfWorkers int
}

// NewBatchProcessor is the constructor for the BatchProcessor command. The
// generator order determines the per-product processing order.
func NewBatchProcessor(
	name string,
	store ArtifactStore,
	gens []generators.ArtifactGenerator,
	numberOfWorkers int) *BatchProcessor {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &BatchProcessor{
		BaseCommand:     *cor.NewBaseCommand(name),
		store:           store,
		generators:      gens,
		numberOfWorkers: numberOfWorkers,
	}
}

// productJob is one unit of pool work: a record and its source position.
type productJob struct {
	index  int
	record *model.ProductRecord
}

// productResult carries a finished outcome back with its source position. A
// non-nil fatal error aborts the run.
type productResult struct {
	index   int
	outcome *model.BatchOutcome
	fatal   error
}

// IsExecutable requires the normalized batch and the run id.
func (s *BatchProcessor) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(s.GetInputParam()) != nil &&
		context.Get(GetBatchIDParamName()) != nil
}

// Execute fans the batch out to the worker pool and assembles the report.
func (s *BatchProcessor) Execute(context cor.Context) {
	batch := context.Get(s.GetInputParam()).(*model.NormalizedBatch)
	batchID := context.Get(GetBatchIDParamName()).(string)

	// The pool context is cancelable so a fatal credential failure stops
	// the remaining workers instead of letting them fail one by one.
	poolCtx, cancel := goctx.WithCancel(context.GetContext())
	defer cancel()

	var wg sync.WaitGroup
	jobs := make(chan *productJob, len(batch.Records))
	results := make(chan *productResult, len(batch.Records))

	for w := 0; w < s.numberOfWorkers; w++ {
		wg.Add(1)
		go s.productWorker(poolCtx, jobs, results, &wg)
	}

	for i, record := range batch.Records {
		jobs <- &productJob{index: i, record: record}
	}
	close(jobs)

	wg.Wait()
	close(results)

	outcomes := make([]*model.BatchOutcome, len(batch.Records))
	var fatal error
	for r := range results {
		if r.fatal != nil {
			if fatal == nil {
				fatal = r.fatal
			}
			continue
		}
		outcomes[r.index] = r.outcome
	}

	if fatal != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("batch %s aborted: %w", batchID, fatal))
		return
	}

	report := &model.BatchReport{ID: batchID, Dropped: batch.Dropped}
	for _, o := range outcomes {
		if o != nil {
			report.Outcomes = append(report.Outcomes, o)
		}
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), report)
}

// productWorker pulls jobs until the channel drains or the pool context is
// canceled.
func (s *BatchProcessor) productWorker(
	ctx goctx.Context,
	jobs <-chan *productJob,
	results chan<- *productResult,
	wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if ctx.Err() != nil {
			return
		}
		outcome, fatal := s.processRecord(ctx, j.record)
		results <- &productResult{index: j.index, outcome: outcome, fatal: fatal}
	}
}

// processRecord drives one product through the per-kind state machine. The
// returned fatal error is non-nil only for credential failures.
func (s *BatchProcessor) processRecord(ctx goctx.Context, record *model.ProductRecord) (*model.BatchOutcome, error) {
	key := record.ProductKey()

	spanCtx, span := s.Tracer.Start(ctx, fmt.Sprintf("%s_product", s.GetName()))
	span.SetAttributes(
		attribute.String("listing_id", record.ListingID),
		attribute.String("product_id", record.ProductID),
	)
	defer span.End()

	outcome := &model.BatchOutcome{
		Record:    record,
		Artifacts: make(map[model.ArtifactKind]*model.ArtifactOutcome),
	}

	var folder *model.FolderHandle
	for _, gen := range s.generators {
		kind := gen.Kind()

		artifact, err := gen.Generate(spanCtx, record)
		if err != nil {
			outcome.Artifacts[kind] = &model.ArtifactOutcome{
				Kind:  kind,
				State: model.StateGenerationFailed,
				Error: err.Error(),
			}
			continue
		}

		// Resolve the product folder lazily: a product whose every kind
		// fails generation never creates an empty folder.
		if folder == nil {
			folder, err = s.store.ResolveFolder(spanCtx, key)
			if err != nil {
				if model.IsAuthError(err) {
					span.SetStatus(codes.Error, "credential failure")
					return nil, err
				}
				outcome.Artifacts[kind] = &model.ArtifactOutcome{
					Kind:  kind,
					State: model.StateUploadFailed,
					Error: err.Error(),
				}
				continue
			}
		}

		name := fmt.Sprintf("%s_%s%s", key, kind, kind.FileExt())
		link, err := s.store.UploadFile(spanCtx, folder.ID, name, artifact.ContentType, artifact.Payload)
		if err != nil {
			if model.IsAuthError(err) {
				span.SetStatus(codes.Error, "credential failure")
				return nil, err
			}
			outcome.Artifacts[kind] = &model.ArtifactOutcome{
				Kind:  kind,
				State: model.StateUploadFailed,
				Error: err.Error(),
			}
			continue
		}

		outcome.Artifacts[kind] = &model.ArtifactOutcome{
			Kind:  kind,
			State: model.StateUploaded,
			Link:  link,
		}
	}

	outcome.Resolve()
	span.SetStatus(codes.Ok, string(outcome.Status))
	return outcome, nil
}
