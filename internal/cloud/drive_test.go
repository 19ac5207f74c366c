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

package cloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// newTestStore returns a store with no API client and backoff sleeping
// disabled; only the retry and cache logic is exercised.
func newTestStore() *DriveStore {
	s := NewDriveStore(nil, &DriveConfig{RootFolderID: "root"})
	s.sleep = func(time.Duration) {}
	return s
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `plain`, escapeQuery(`plain`))
	assert.Equal(t, `O\'Brien`, escapeQuery(`O'Brien`))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
}

func TestIsRetryable(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, isRetryable(&googleapi.Error{Code: code}), "code %d", code)
	}
	for _, code := range []int{400, 401, 403, 404} {
		assert.False(t, isRetryable(&googleapi.Error{Code: code}), "code %d", code)
	}
	// Errors without an HTTP status are treated as transient.
	assert.True(t, isRetryable(errors.New("connection reset")))
}

// TestWithRetryRecoversFromTransientFailures verifies transient statuses
// are retried up to the attempt budget.
func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	s := newTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "upload-file", func() error {
		calls++
		if calls < 3 {
			return &googleapi.Error{Code: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestWithRetryExhaustsAttempts verifies the final transient error is
// wrapped and surfaced after the attempt budget runs out.
func TestWithRetryExhaustsAttempts(t *testing.T) {
	s := newTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "upload-file", func() error {
		calls++
		return &googleapi.Error{Code: 429}
	})
	require.Error(t, err)
	assert.Equal(t, driveMaxAttempts, calls)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Code)
}

// TestWithRetryStopsOnPermanentError verifies non-retryable statuses fail
// immediately.
func TestWithRetryStopsOnPermanentError(t *testing.T) {
	s := newTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "find-file", func() error {
		calls++
		return &googleapi.Error{Code: 404}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

// TestWithRetryHonorsCancellation verifies a canceled context stops the
// retry loop.
func TestWithRetryHonorsCancellation(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.withRetry(ctx, "resolve-folder", func() error {
		t.Fatal("fn should not run after cancellation")
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestWithRetryStopsAtDeadline verifies an expired per-call deadline is not
// retried: the first deadline error ends the loop.
func TestWithRetryStopsAtDeadline(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	calls := 0
	err := s.withRetry(ctx, "upload-file", func() error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, calls)
}

// TestOpCtxAppliesConfiguredDeadline verifies the configured per-operation
// timeouts become context deadlines and that a zero timeout leaves the
// caller's context unbounded.
func TestOpCtxAppliesConfiguredDeadline(t *testing.T) {
	s := NewDriveStore(nil, &DriveConfig{
		RootFolderID:             "root",
		UploadTimeoutInSeconds:   120,
		ResolveTimeoutInSeconds:  30,
		DownloadTimeoutInSeconds: 60,
	})

	for _, timeout := range []time.Duration{s.uploadTimeout, s.resolveTimeout, s.downloadTimeout} {
		ctx, cancel := opCtx(context.Background(), timeout)
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		cancel()
	}
	assert.Equal(t, 120*time.Second, s.uploadTimeout)
	assert.Equal(t, 30*time.Second, s.resolveTimeout)
	assert.Equal(t, 60*time.Second, s.downloadTimeout)

	ctx, cancel := opCtx(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

// TestWrapErrClassifiesCredentialFailure verifies a 401 from the Drive API
// surfaces as an auth failure while other statuses stay storage errors.
func TestWrapErrClassifiesCredentialFailure(t *testing.T) {
	s := NewDriveStore(nil, &DriveConfig{RootFolderID: "root", CredentialMode: CredentialModeOAuthRefresh})

	err := s.wrapErr("resolve-folder", "L-1", &googleapi.Error{Code: 401, Message: "Invalid Credentials"})
	assert.True(t, model.IsAuthError(err))
	assert.False(t, model.IsStorageError(err))

	err = s.wrapErr("upload-file", "L-1_video.mp4", &googleapi.Error{Code: 500})
	assert.True(t, model.IsStorageError(err))
	assert.False(t, model.IsAuthError(err))
}

// TestResolveFolderCredentialFailure verifies a 401 from the live API path
// surfaces as an auth failure, which aborts the batch instead of grinding
// through every product.
func TestResolveFolderCredentialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": 401, "message": "Invalid Credentials"}}`))
	}))
	defer srv.Close()

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL))
	require.NoError(t, err)

	s := NewDriveStore(svc, &DriveConfig{RootFolderID: "root", CredentialMode: CredentialModeServiceAccount})
	s.sleep = func(time.Duration) {}

	_, err = s.ResolveFolder(context.Background(), "L-1")
	require.Error(t, err)
	assert.True(t, model.IsAuthError(err))
	assert.False(t, model.IsStorageError(err))
}

// TestFolderCache verifies a cached handle is returned without touching
// the API client.
func TestFolderCache(t *testing.T) {
	s := newTestStore()
	s.cacheFolder("L-1", &model.FolderHandle{ID: "folder-1", Name: "L-1", ParentID: "root"})

	// The service is nil; a cache miss would panic.
	h, err := s.ResolveFolder(context.Background(), "L-1")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", h.ID)
}
