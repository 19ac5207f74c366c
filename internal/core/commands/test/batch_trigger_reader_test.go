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

// Package commands_test contains unit tests for the pipeline commands. This
// file covers the Pub/Sub trigger reader.
package commands_test

import (
	goctx "context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomlisting/go-listing-batch/internal/core/commands"
	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
	test "github.com/ecomlisting/go-listing-batch/internal/testutil"
)

// fakeFetcher serves file content by id.
type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) DownloadFile(_ goctx.Context, fileID string) ([]byte, error) {
	data, ok := f.files[fileID]
	if !ok {
		return nil, &model.StorageError{Op: "download-file", Key: fileID, Err: errors.New("not found")}
	}
	return data, nil
}

// TestTriggerReaderBuildsBatchSource verifies a well-formed trigger message
// yields a BatchSource with both files and assigns a batch id.
func TestTriggerReaderBuildsBatchSource(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string][]byte{
		"drive-file-csv-001":    []byte(test.GetTestProductCSV()),
		"drive-file-images-001": []byte(test.GetTestImagesJSON()),
	}}
	reader := commands.NewBatchTriggerReader("read-batch-trigger", fetcher)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, test.GetTestTriggerMessageText())

	reader.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	source := chainCtx.Get(cor.CtxOut).(*model.BatchSource)
	assert.Equal(t, []byte(test.GetTestProductCSV()), source.CSV)
	assert.Equal(t, []byte(test.GetTestImagesJSON()), source.ImagesJSON)
	assert.NotEmpty(t, chainCtx.Get(commands.GetBatchIDParamName()))
}

// TestTriggerReaderRejectsMalformedMessage verifies both a non-JSON payload
// and a payload without the CSV id fail the chain.
func TestTriggerReaderRejectsMalformedMessage(t *testing.T) {
	reader := commands.NewBatchTriggerReader("read-batch-trigger", &fakeFetcher{})

	for _, payload := range []string{"not json", `{"images_json_file_id": "x"}`} {
		chainCtx := cor.NewBaseContext()
		chainCtx.SetContext(goctx.Background())
		chainCtx.Add(cor.CtxIn, payload)

		reader.Execute(chainCtx)
		assert.True(t, chainCtx.HasErrors(), "payload %q should fail", payload)
	}
}

// TestTriggerReaderPropagatesDownloadFailure verifies a missing Drive file
// surfaces as a chain error so the message is not acknowledged.
func TestTriggerReaderPropagatesDownloadFailure(t *testing.T) {
	reader := commands.NewBatchTriggerReader("read-batch-trigger", &fakeFetcher{})

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, test.GetTestTriggerMessageText())

	reader.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.True(t, model.IsStorageError(err))
	}
}
