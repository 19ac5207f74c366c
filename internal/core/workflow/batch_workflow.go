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

// Package workflow defines the high-level orchestrations that combine
// commands into coherent pipelines. This file implements the batch content
// workflow: normalize the input, generate and upload artifacts for every
// product, persist the outcome rows and archive the report.
//
// Two submission paths share this workflow. The HTTP path hands it a
// BatchSource built from a multipart upload; the Pub/Sub path prepends a
// trigger reader that assembles the same BatchSource from Drive file ids.
package workflow

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
	"github.com/ecomlisting/go-listing-batch/internal/core/commands"
	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/generators"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// AgentModelBlogWriter is the logical name of the LLM definition the blog
// generator uses, as configured in the [agent_models] TOML table.
const AgentModelBlogWriter = "blog-writer"

// logger emits workflow-level records through the OpenTelemetry log bridge
// so run summaries land next to the pipeline's spans and metrics.
var logger = otelslog.NewLogger("batch-workflow")

// BatchWorkflow runs a complete batch: normalization, generation, upload,
// persistence and archival.
type BatchWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	clients *cloud.ServiceClients
	chain   cor.Chain
}

// Execute runs the workflow by invoking the underlying chain and logs the
// run summary.
func (w *BatchWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)

	if context.HasErrors() {
		logger.ErrorContext(context.GetContext(), "batch run failed",
			"errors", len(context.GetErrors()))
		return
	}
	if report, ok := context.Get(cor.CtxIn).(*model.BatchReport); ok {
		logger.InfoContext(context.GetContext(), "batch run completed",
			"batch_id", report.ID,
			"products", len(report.Outcomes),
			"dropped_rows", len(report.Dropped))
	}
}

// initializeChain builds the command sequence. The chain stops at the first
// failed step: a report is only persisted and archived when the batch ran to
// completion.
func (w *BatchWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: parse and validate the CSV, resolve image references, drop
	// malformed rows.
	out.AddCommand(commands.NewRecordNormalizer("normalize-records"))

	// Step 2: run the generate-and-upload state machine for every record on
	// the worker pool. Generator order fixes the per-product artifact order:
	// video first, then blog.
	gens := []generators.ArtifactGenerator{
		generators.NewVideoRenderer(&w.config.VideoRender),
		generators.NewBlogGenerator(
			w.clients.AgentModels[AgentModelBlogWriter],
			w.config.PromptTemplates.BlogPrompt),
	}
	out.AddCommand(commands.NewBatchProcessor(
		"process-batch",
		w.clients.DriveStore,
		gens,
		w.config.Application.ThreadPoolSize))

	// Step 3: stream the flattened outcome rows into BigQuery for the
	// status API.
	out.AddCommand(commands.NewReportToBigQuery(
		"write-outcomes-to-bigquery",
		w.clients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.OutcomeTable))

	// Step 4: archive the full report JSON to the report bucket.
	out.AddCommand(commands.NewReportArchiver(
		"archive-report",
		w.clients.StorageClient,
		w.config.Storage.ReportBucket))

	w.chain = out
}

// NewBatchWorkflow is the constructor for the BatchWorkflow.
func NewBatchWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *BatchWorkflow {
	pipeline := &BatchWorkflow{
		BaseCommand: *cor.NewBaseCommand("batch-content-pipeline"),
		config:      config,
		clients:     serviceClients,
	}
	pipeline.initializeChain()
	return pipeline
}

// BatchTriggerWorkflow is the Pub/Sub entry point: it reads the trigger
// message, pulls the batch input out of Drive and runs the batch workflow.
type BatchTriggerWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	clients *cloud.ServiceClients
	chain   cor.Chain
}

// Execute runs the trigger workflow by invoking the underlying chain.
func (w *BatchTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *BatchTriggerWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewBatchTriggerReader("read-batch-trigger", w.clients.DriveStore))
	out.AddCommand(NewBatchWorkflow(w.config, w.clients))
	w.chain = out
}

// NewBatchTriggerWorkflow is the constructor for the BatchTriggerWorkflow.
func NewBatchTriggerWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *BatchTriggerWorkflow {
	pipeline := &BatchTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("batch-trigger-pipeline"),
		config:      config,
		clients:     serviceClients,
	}
	pipeline.initializeChain()
	return pipeline
}
