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

// Package generators_test contains unit tests for the artifact generators.
// This file covers the video renderer's HTTP contract against a local stub
// of the render service.
package generators_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
	"github.com/ecomlisting/go-listing-batch/internal/core/generators"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// fakeMP4 is a minimal ISO base media file header that sniffs as video/mp4.
var fakeMP4 = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'm', 'p', '4', '1',
}

func testRecord() *model.ProductRecord {
	return &model.ProductRecord{
		ListingID:   "L-1001",
		ProductID:   "P-2001",
		Title:       "Walnut Desk Organizer",
		Description: "Handcrafted walnut organizer.",
		ImageRefs:   []string{"https://img.example.com/l1001-a.jpg"},
	}
}

func newRenderer(endpoint string) *generators.VideoRenderer {
	return generators.NewVideoRenderer(&cloud.VideoRenderConfig{Endpoint: endpoint, TimeoutInSeconds: 5})
}

// TestVideoRendererSuccess verifies the renderer posts the listing fields
// and returns the MP4 payload.
func TestVideoRendererSuccess(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(fakeMP4)
	}))
	defer srv.Close()

	artifact, err := newRenderer(srv.URL).Generate(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, model.KindVideo, artifact.Kind)
	assert.Equal(t, "video/mp4", artifact.ContentType)
	assert.Equal(t, fakeMP4, artifact.Payload)

	assert.Equal(t, "L-1001", received["listing_id"])
	assert.Equal(t, "P-2001", received["product_id"])
	assert.Equal(t, "Walnut Desk Organizer", received["title"])
	urls, ok := received["image_urls"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, len(urls))
}

// TestVideoRendererServerError verifies a non-2xx response becomes a
// generation error carrying the status.
func TestVideoRendererServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "render queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newRenderer(srv.URL).Generate(context.Background(), testRecord())
	require.Error(t, err)
	assert.True(t, model.IsGenerationError(err))
	assert.Contains(t, err.Error(), "503")
}

// TestVideoRendererRejectsNonVideoPayload verifies a body that does not
// sniff as video is refused instead of uploaded.
func TestVideoRendererRejectsNonVideoPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("<html>error page pretending to be a video</html>"))
	}))
	defer srv.Close()

	_, err := newRenderer(srv.URL).Generate(context.Background(), testRecord())
	require.Error(t, err)
	assert.True(t, model.IsGenerationError(err))
}

// TestVideoRendererUnreachable verifies connection failures surface as
// generation errors scoped to the product.
func TestVideoRendererUnreachable(t *testing.T) {
	_, err := newRenderer("http://127.0.0.1:1/generate").Generate(context.Background(), testRecord())
	require.Error(t, err)
	assert.True(t, model.IsGenerationError(err))
}
