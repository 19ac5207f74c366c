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
// This file implements the video generator, a thin client for the external
// render service. The service accepts the listing fields and image URLs and
// returns the rendered MP4 bytes; everything about how the video is
// assembled lives behind that endpoint. Timeouts, non-2xx responses and
// payloads that do not sniff as video all surface as GenerationErrors for
// the affected product only.
package generators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/h2non/filetype"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// renderRequest is the wire contract of the render service's generate
// endpoint.
type renderRequest struct {
	ListingID   string   `json:"listing_id"`
	ProductID   string   `json:"product_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
}

// VideoRenderer produces the promotional video for a listing by delegating
// to the configured render service.
type VideoRenderer struct {
	endpoint string
	client   *http.Client
}

// NewVideoRenderer builds the renderer from its config. A zero timeout
// defaults to five minutes; video rendering is slow.
func NewVideoRenderer(cfg *cloud.VideoRenderConfig) *VideoRenderer {
	timeout := time.Duration(cfg.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &VideoRenderer{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Kind reports the artifact kind this generator produces.
func (g *VideoRenderer) Kind() model.ArtifactKind {
	return model.KindVideo
}

// Generate posts the listing to the render service and returns the MP4
// payload.
func (g *VideoRenderer) Generate(ctx context.Context, record *model.ProductRecord) (*model.GeneratedArtifact, error) {
	body, err := json.Marshal(&renderRequest{
		ListingID:   record.ListingID,
		ProductID:   record.ProductID,
		Title:       record.Title,
		Description: record.Description,
		ImageURLs:   record.ImageRefs,
	})
	if err != nil {
		return nil, &model.GenerationError{Kind: model.KindVideo, Reason: "failed to encode render request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &model.GenerationError{Kind: model.KindVideo, Reason: "failed to build render request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &model.GenerationError{Kind: model.KindVideo, Reason: "render service unreachable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &model.GenerationError{
			Kind:   model.KindVideo,
			Reason: fmt.Sprintf("render service returned %d: %s", resp.StatusCode, string(msg)),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.GenerationError{Kind: model.KindVideo, Reason: "failed to read render response", Err: err}
	}
	if len(payload) == 0 {
		return nil, &model.GenerationError{Kind: model.KindVideo, Reason: "render service returned an empty body"}
	}

	// Sniff the payload rather than trusting the response headers; a render
	// service error page uploaded as an .mp4 is worse than a failed product.
	if !filetype.IsVideo(payload) {
		kind, _ := filetype.Match(payload)
		return nil, &model.GenerationError{
			Kind:   model.KindVideo,
			Reason: fmt.Sprintf("render service returned %q, not a video", kind.MIME.Value),
		}
	}

	return &model.GeneratedArtifact{
		Kind:        model.KindVideo,
		Payload:     payload,
		ContentType: "video/mp4",
	}, nil
}
