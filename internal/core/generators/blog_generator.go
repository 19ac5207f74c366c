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

// Package generators produces the content artifacts for a product listing.
// This file implements the blog generator: it renders the configured prompt
// template with the listing's title and description and sends it through the
// rate-limited Gemini model. The model output is used verbatim as the blog
// artifact; an empty response is a generation failure, not an empty upload.
package generators

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// Template tokens replaced with record fields before the prompt is sent.
const (
	tokenTitle       = "{{title}}"
	tokenDescription = "{{description}}"
)

// BlogGenerator produces the blog-style article for a listing.
type BlogGenerator struct {
	model          *cloud.QuotaAwareGenerativeAIModel
	promptTemplate string

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewBlogGenerator wires the generator to its model and prompt template.
func NewBlogGenerator(model *cloud.QuotaAwareGenerativeAIModel, promptTemplate string) *BlogGenerator {
	meter := otel.Meter(cor.MeterName)

	inputTokens, err := meter.Int64Counter("blog-generator.tokens.input")
	if err != nil {
		log.Printf("error creating input token counter: %v\n", err)
	}
	outputTokens, err := meter.Int64Counter("blog-generator.tokens.output")
	if err != nil {
		log.Printf("error creating output token counter: %v\n", err)
	}
	retries, err := meter.Int64Counter("blog-generator.counter.retries")
	if err != nil {
		log.Printf("error creating retry counter: %v\n", err)
	}

	return &BlogGenerator{
		model:              model,
		promptTemplate:     promptTemplate,
		inputTokenCounter:  inputTokens,
		outputTokenCounter: outputTokens,
		retryCounter:       retries,
	}
}

// Kind reports the artifact kind this generator produces.
func (g *BlogGenerator) Kind() model.ArtifactKind {
	return model.KindBlog
}

// Generate renders the prompt for one record and returns the model's text as
// a UTF-8 blog artifact.
func (g *BlogGenerator) Generate(ctx context.Context, record *model.ProductRecord) (*model.GeneratedArtifact, error) {
	prompt := strings.NewReplacer(
		tokenTitle, record.Title,
		tokenDescription, record.Description,
	).Replace(g.promptTemplate)

	text, err := cloud.GenerateTextResponse(
		ctx,
		g.inputTokenCounter,
		g.outputTokenCounter,
		g.retryCounter,
		0,
		g.model,
		cloud.NewTextContent(prompt))
	if err != nil {
		return nil, &model.GenerationError{Kind: model.KindBlog, Reason: "model call failed", Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.GenerationError{
			Kind:   model.KindBlog,
			Reason: fmt.Sprintf("model returned no content for listing %s", record.ListingID),
		}
	}

	return &model.GeneratedArtifact{
		Kind:        model.KindBlog,
		Payload:     []byte(text),
		ContentType: "text/plain",
	}, nil
}
