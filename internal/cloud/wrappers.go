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

// Package cloud provides components for interacting with Google Cloud
// services. This file wraps the Gemini client with a client-side rate
// limiter so a large batch cannot exhaust the model's quota: every
// generation call first waits for a limiter token sized from the model's
// configured requests-per-second.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a genai model with a token-bucket
// rate limiter. All generation traffic for one logical model goes through
// one instance, so the limit holds across concurrent batch workers.
type QuotaAwareGenerativeAIModel struct {
	client    *genai.Client
	Limiter   *rate.Limiter
	ShortName string // The model id, e.g. "gemini-2.0-flash".
	Config    *genai.GenerateContentConfig
	Timeout   time.Duration // Per-call deadline; zero means unbounded.
}

// NewQuotaAwareModel builds the decorated model from its TOML definition.
// A zero or negative rate limit falls back to one request per second.
func NewQuotaAwareModel(client *genai.Client, def *VertexAiLLMModel) *QuotaAwareGenerativeAIModel {
	limit := def.RateLimit
	if limit <= 0 {
		limit = 1
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](def.Temperature),
		TopP:            genai.Ptr[float32](def.TopP),
		TopK:            genai.Ptr[float32](def.TopK),
		MaxOutputTokens: def.MaxTokens,
		SafetySettings:  DefaultSafetySettings,
	}
	if def.SystemInstructions != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: def.SystemInstructions}},
		}
	}
	if def.OutputFormat != "" {
		config.ResponseMIMEType = def.OutputFormat
	}

	return &QuotaAwareGenerativeAIModel{
		client:    client,
		Limiter:   rate.NewLimiter(rate.Limit(limit), limit),
		ShortName: def.Model,
		Config:    config,
		Timeout:   time.Duration(def.TimeoutInSeconds) * time.Second,
	}
}

// GenerateContent blocks until the limiter admits the request, then issues
// the generation call under the model's per-call deadline. A canceled
// context is returned as-is so callers can distinguish shutdown from model
// failure.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(
	ctx context.Context,
	content []*genai.Content) (*genai.GenerateContentResponse, error) {
	ctx, cancel := opCtx(ctx, q.Timeout)
	defer cancel()

	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return q.client.Models.GenerateContent(ctx, q.ShortName, content, q.Config)
}
