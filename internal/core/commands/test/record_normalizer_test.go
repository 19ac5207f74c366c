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
// file covers the record normalizer: schema validation, drop reporting and
// image reference resolution.
package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomlisting/go-listing-batch/internal/core/commands"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
	test "github.com/ecomlisting/go-listing-batch/internal/testutil"
)

// TestNormalizeValidBatch verifies a clean CSV produces records in source
// order with image refs taken from the embedded column first and the
// manifest as fallback.
func TestNormalizeValidBatch(t *testing.T) {
	normalizer := commands.NewRecordNormalizer("normalize-records")
	batch, err := normalizer.Normalize(&model.BatchSource{
		CSV:        []byte(test.GetTestProductCSV()),
		ImagesJSON: []byte(test.GetTestImagesJSON()),
	})
	require.NoError(t, err)
	require.Equal(t, 3, len(batch.Records))
	assert.Equal(t, 0, len(batch.Dropped))

	first := batch.Records[0]
	assert.Equal(t, "L-1001", first.ListingID)
	assert.Equal(t, "P-2001", first.ProductID)
	assert.Equal(t, "Walnut Desk Organizer", first.Title)
	// Embedded column wins: both URLs extracted, comma separated.
	assert.Equal(t, []string{
		"https://img.example.com/l1001-a.jpg",
		"https://img.example.com/l1001-b.png",
	}, first.ImageRefs)

	// No embedded refs; filled from the manifest by listing and product id.
	second := batch.Records[1]
	assert.Equal(t, []string{
		"https://img.example.com/l1002-a.jpg",
		"https://img.example.com/l1002-b.jpg",
	}, second.ImageRefs)

	third := batch.Records[2]
	assert.Equal(t, []string{"https://img.example.com/l1003.jpeg"}, third.ImageRefs)
}

// TestNormalizeDropsMalformedRows verifies that malformed rows are excluded
// with their 1-based row numbers while the valid rows survive.
func TestNormalizeDropsMalformedRows(t *testing.T) {
	normalizer := commands.NewRecordNormalizer("normalize-records")
	batch, err := normalizer.Normalize(&model.BatchSource{
		CSV: []byte(test.GetTestProductCSVWithBadRows()),
	})
	require.NoError(t, err)

	require.Equal(t, 2, len(batch.Records))
	assert.Equal(t, "L-1001", batch.Records[0].ListingID)
	assert.Equal(t, "L-1003", batch.Records[1].ListingID)

	require.Equal(t, 2, len(batch.Dropped))
	assert.Equal(t, 2, batch.Dropped[0].RowNumber)
	assert.Contains(t, batch.Dropped[0].Reason, "Title")
	assert.Equal(t, 4, batch.Dropped[1].RowNumber)
	assert.Contains(t, batch.Dropped[1].Reason, "Product Id")
}

// TestNormalizeDropsDuplicateListingIds verifies the second occurrence of a
// listing id is dropped, not merged.
func TestNormalizeDropsDuplicateListingIds(t *testing.T) {
	csv := "Listing Id,Product Id,Title,Description\n" +
		"L-1,P-1,First,Desc one\n" +
		"L-1,P-2,Second,Desc two\n"

	normalizer := commands.NewRecordNormalizer("normalize-records")
	batch, err := normalizer.Normalize(&model.BatchSource{CSV: []byte(csv)})
	require.NoError(t, err)

	require.Equal(t, 1, len(batch.Records))
	assert.Equal(t, "P-1", batch.Records[0].ProductID)
	require.Equal(t, 1, len(batch.Dropped))
	assert.Equal(t, 2, batch.Dropped[0].RowNumber)
	assert.Contains(t, batch.Dropped[0].Reason, "duplicate")
}

// TestNormalizeMissingRequiredColumn verifies that a CSV without one of the
// required header columns fails the batch outright.
func TestNormalizeMissingRequiredColumn(t *testing.T) {
	csv := "Listing Id,Product Id,Title\nL-1,P-1,No Description Column\n"

	normalizer := commands.NewRecordNormalizer("normalize-records")
	_, err := normalizer.Normalize(&model.BatchSource{CSV: []byte(csv)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Description")
}

// TestNormalizeIgnoresNonImageTokens verifies that embedded cell tokens
// without an image extension are filtered out.
func TestNormalizeIgnoresNonImageTokens(t *testing.T) {
	csv := "Listing Id,Product Id,Title,Description,Image URL List\n" +
		"L-1,P-1,Item,Desc,\"https://x.example/a.jpg;not-a-url;https://x.example/page.html\"\n"

	normalizer := commands.NewRecordNormalizer("normalize-records")
	batch, err := normalizer.Normalize(&model.BatchSource{CSV: []byte(csv)})
	require.NoError(t, err)
	require.Equal(t, 1, len(batch.Records))
	assert.Equal(t, []string{"https://x.example/a.jpg"}, batch.Records[0].ImageRefs)
}
