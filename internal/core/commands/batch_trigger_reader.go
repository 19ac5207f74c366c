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
// workflows. This file defines the trigger reader, the head of the Pub/Sub
// submission path. A trigger message names the Drive files holding the
// product CSV and the optional images JSON; the reader downloads both and
// emits the same BatchSource the HTTP path builds from a multipart upload,
// so the rest of the chain is shared.
package commands

import (
	goctx "context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// FileFetcher is the slice of the remote store the trigger reader needs.
type FileFetcher interface {
	DownloadFile(ctx goctx.Context, fileID string) ([]byte, error)
}

// BatchTriggerMessage is the JSON payload of a batch trigger.
type BatchTriggerMessage struct {
	CSVFileID        string `json:"csv_file_id"`
	ImagesJSONFileID string `json:"images_json_file_id"`
}

// BatchTriggerReader turns a trigger message into a BatchSource.
type BatchTriggerReader struct {
	cor.BaseCommand
	fetcher FileFetcher
}

// NewBatchTriggerReader is the constructor for the BatchTriggerReader
// command.
func NewBatchTriggerReader(name string, fetcher FileFetcher) *BatchTriggerReader {
	return &BatchTriggerReader{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher}
}

// Execute decodes the trigger, downloads the referenced files and assigns
// the run its batch id.
func (s *BatchTriggerReader) Execute(context cor.Context) {
	raw := context.Get(s.GetInputParam()).(string)

	var trigger BatchTriggerMessage
	if err := json.Unmarshal([]byte(raw), &trigger); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to parse trigger message: %w", err))
		return
	}
	if trigger.CSVFileID == "" {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("trigger message has no csv_file_id"))
		return
	}

	csvData, err := s.fetcher.DownloadFile(context.GetContext(), trigger.CSVFileID)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	var imagesData []byte
	if trigger.ImagesJSONFileID != "" {
		imagesData, err = s.fetcher.DownloadFile(context.GetContext(), trigger.ImagesJSONFileID)
		if err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), err)
			return
		}
	}

	source := &model.BatchSource{CSV: csvData, ImagesJSON: imagesData}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetBatchIDParamName(), uuid.NewString())
	context.Add(s.GetOutputParam(), source)
	context.Add(cor.CtxOut, source)
}
