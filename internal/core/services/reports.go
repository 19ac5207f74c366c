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
// batch data. This file defines the ReportService, which serves the batch
// status API by reading the flattened outcome rows back out of BigQuery.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// ErrBatchNotFound is returned when no outcome rows exist for a batch id.
var ErrBatchNotFound = errors.New("batch not found")

// ReportService reads persisted batch outcomes.
type ReportService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	OutcomeTable   string
}

// GetFQN returns the queryable fully qualified name of the outcomes table,
// with dots instead of the client library's colon separator.
func (s *ReportService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.OutcomeTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// GetOutcomes retrieves all outcome rows for a batch run. A batch id with no
// rows yields ErrBatchNotFound.
func (s *ReportService) GetOutcomes(ctx context.Context, batchID string) ([]*model.OutcomeRow, error) {
	queryText := fmt.Sprintf(QryOutcomesByBatchId, s.GetFQN(), strings.ReplaceAll(batchID, "'", ""))
	q := s.BigqueryClient.Query(queryText)

	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*model.OutcomeRow
	for {
		row := &model.OutcomeRow{}
		err := itr.Next(row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrBatchNotFound
	}
	return rows, nil
}
