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
// workflows. This file defines the command that streams the flattened batch
// report rows into BigQuery, one row per (product, kind) pair. The rows
// back the batch status API; the report itself is passed through unchanged
// for the archive step.
package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// ReportToBigQuery persists a BatchReport's outcome rows.
type ReportToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

// NewReportToBigQuery is the constructor for the ReportToBigQuery command.
func NewReportToBigQuery(name string, client *bigquery.Client, dataset string, table string) *ReportToBigQuery {
	return &ReportToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
}

// Execute streams the report's rows through a table inserter.
func (s *ReportToBigQuery) Execute(context cor.Context) {
	report := context.Get(s.GetInputParam()).(*model.BatchReport)

	rows := report.Rows()
	if len(rows) > 0 {
		inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
		if err := inserter.Put(context.GetContext(), rows); err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), fmt.Errorf("bigquery insert failed for batch %s: %w", report.ID, err))
			return
		}
	}

	slog.Info("persisted batch outcome rows", "batch_id", report.ID, "rows", len(rows))
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, report)
}
