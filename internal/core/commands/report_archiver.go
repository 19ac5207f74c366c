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
// workflows. This file defines the command that archives the complete batch
// report, as submitted to the caller, into a Cloud Storage bucket. The
// archive is the durable audit copy; the BigQuery rows are the queryable
// projection.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// ReportArchiver writes the full report JSON to GCS under
// reports/<batch-id>.json.
type ReportArchiver struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewReportArchiver is the constructor for the ReportArchiver command.
func NewReportArchiver(name string, client *storage.Client, bucket string) *ReportArchiver {
	return &ReportArchiver{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// Execute serializes the report and writes it to the archive bucket.
func (s *ReportArchiver) Execute(context cor.Context) {
	report := context.Get(s.GetInputParam()).(*model.BatchReport)

	data, err := json.Marshal(report)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to serialize report %s: %w", report.ID, err))
		return
	}

	object := fmt.Sprintf("reports/%s.json", report.ID)
	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(context.GetContext())
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to write report archive %s: %w", object, err))
		return
	}
	if err := writer.Close(); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to finalize report archive %s: %w", object, err))
		return
	}

	slog.Info("archived batch report", "batch_id", report.ID, "object", object)
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, report)
}
