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
// workflows. This file defines the record normalizer, the single entry gate
// for batch input: it parses the product CSV, validates each row against the
// required schema, resolves image references and emits canonical
// ProductRecords in source order.
//
// Validation is row-scoped. A malformed row is dropped and reported; it
// never fails the batch. The only batch-level failure here is input that is
// not CSV at all or is missing required header columns, since no row can be
// interpreted without them.
//
// Image references come from two places, in priority order:
//  1. Embedded columns: any column whose header mentions both "image" and
//     "url" is split on commas, semicolons and newlines, and every token
//     that looks like an image URL is kept.
//  2. The images JSON sidecar, matched by listing id and product id, for
//     records with no embedded references.
package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// Required header columns of the product CSV.
const (
	ColListingID   = "Listing Id"
	ColProductID   = "Product Id"
	ColTitle       = "Title"
	ColDescription = "Description"
)

// imageURLPattern accepts tokens that end in a common image extension,
// optionally followed by a query string.
var imageURLPattern = regexp.MustCompile(`(?i)\.(png|jpe?g)(\?|$)`)

// imageRefSeparators splits an embedded image cell into candidate tokens.
var imageRefSeparators = regexp.MustCompile(`[,\n;]`)

// RecordNormalizer converts a raw BatchSource into a NormalizedBatch.
type RecordNormalizer struct {
	cor.BaseCommand
}

// NewRecordNormalizer is the constructor for the RecordNormalizer command.
func NewRecordNormalizer(name string) *RecordNormalizer {
	return &RecordNormalizer{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses and validates the batch input from the context and emits
// the normalized batch.
func (s *RecordNormalizer) Execute(context cor.Context) {
	source := context.Get(s.GetInputParam()).(*model.BatchSource)

	batch, err := s.Normalize(source)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), batch)
	context.Add(cor.CtxOut, batch)
}

// Normalize contains the parsing and validation logic. It is exported so
// the HTTP layer can reject an unreadable submission synchronously.
func (s *RecordNormalizer) Normalize(source *model.BatchSource) (*model.NormalizedBatch, error) {
	reader := csv.NewReader(bytes.NewReader(source.CSV))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColListingID, ColProductID, ColTitle, ColDescription} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	// Column indexes that may carry embedded image URLs.
	var imageColumns []int
	for name, i := range columns {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "image") && strings.Contains(lower, "url") {
			imageColumns = append(imageColumns, i)
		}
	}

	manifest, err := parseImageManifest(source.ImagesJSON)
	if err != nil {
		return nil, err
	}

	batch := &model.NormalizedBatch{}
	seen := make(map[string]bool)

	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			batch.Dropped = append(batch.Dropped, &model.NormalizationDrop{
				RowNumber: rowNum,
				Reason:    fmt.Sprintf("unparseable row: %v", err),
			})
			continue
		}

		record, reason := buildRecord(row, columns, imageColumns)
		if reason != "" {
			batch.Dropped = append(batch.Dropped, &model.NormalizationDrop{RowNumber: rowNum, Reason: reason})
			continue
		}
		if seen[record.ListingID] {
			batch.Dropped = append(batch.Dropped, &model.NormalizationDrop{
				RowNumber: rowNum,
				Reason:    fmt.Sprintf("duplicate listing id %q", record.ListingID),
			})
			continue
		}
		seen[record.ListingID] = true

		if len(record.ImageRefs) == 0 {
			record.ImageRefs = manifest[manifestKey(record.ListingID, record.ProductID)]
		}

		batch.Records = append(batch.Records, record)
	}

	return batch, nil
}

// buildRecord validates one row and assembles its record. A non-empty reason
// marks the row as dropped.
func buildRecord(row []string, columns map[string]int, imageColumns []int) (*model.ProductRecord, string) {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	record := &model.ProductRecord{
		ListingID:   cell(columns[ColListingID]),
		ProductID:   cell(columns[ColProductID]),
		Title:       cell(columns[ColTitle]),
		Description: cell(columns[ColDescription]),
	}

	switch {
	case record.ListingID == "":
		return nil, fmt.Sprintf("missing value for %q", ColListingID)
	case record.ProductID == "":
		return nil, fmt.Sprintf("missing value for %q", ColProductID)
	case record.Title == "":
		return nil, fmt.Sprintf("missing value for %q", ColTitle)
	case record.Description == "":
		return nil, fmt.Sprintf("missing value for %q", ColDescription)
	}

	for _, i := range imageColumns {
		for _, token := range imageRefSeparators.Split(cell(i), -1) {
			token = strings.TrimSpace(token)
			if token != "" && imageURLPattern.MatchString(token) {
				record.ImageRefs = append(record.ImageRefs, token)
			}
		}
	}

	return record, ""
}

// parseImageManifest decodes the optional sidecar into a lookup keyed by
// listing and product id. Empty input yields an empty map.
func parseImageManifest(data []byte) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var entries []*model.ImageManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse images json: %w", err)
	}

	for _, e := range entries {
		urls := make([]string, 0, len(e.Images))
		for _, img := range e.Images {
			if strings.TrimSpace(img.ImageURL) != "" {
				urls = append(urls, img.ImageURL)
			}
		}
		out[manifestKey(e.ListingID, e.ProductID)] = urls
	}
	return out, nil
}

func manifestKey(listingID, productID string) string {
	return listingID + "|" + productID
}
