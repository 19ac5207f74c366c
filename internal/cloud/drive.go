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
// services. This file implements DriveStore, the remote folder resolver and
// uploader backed by the Google Drive v3 API.
//
// Folder resolution is lookup-then-create and therefore races with itself
// when workers process artifacts for the same product concurrently. The
// store serializes resolution per product key with a lock map and caches the
// resulting handle for the rest of the run, so one run creates at most one
// folder per key. Different keys resolve concurrently.
//
// Uploads overwrite: a file with the target name already present in the
// folder is updated in place rather than duplicated, so re-running a batch
// replaces its artifacts instead of proliferating copies.
//
// Every Drive call goes through withRetry, which retries HTTP statuses
// 429/500/502/503/504 with exponential backoff and jitter. Each call is
// bounded by the per-operation deadline from the configuration. Exhausted
// retries and expired deadlines surface as a model.StorageError, terminal
// for the affected product only. A 401 is the exception: it means the
// credentials stopped working mid-run, so it surfaces as a model.AuthError
// and the orchestrator aborts the batch.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	driveMaxAttempts = 3
	driveBaseDelay   = 1500 * time.Millisecond
)

// DriveStore wraps a drive.Service with the per-run folder cache, the
// retry policy and the per-operation deadlines. One store instance serves
// one configured root folder.
type DriveStore struct {
	service        *drive.Service
	rootID         string
	credentialMode string

	resolveTimeout  time.Duration
	uploadTimeout   time.Duration
	downloadTimeout time.Duration

	mu       sync.Mutex
	folders  map[string]*model.FolderHandle
	keyLocks map[string]*sync.Mutex

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// NewDriveStore creates a store for the given authenticated service and
// Drive configuration.
func NewDriveStore(service *drive.Service, cfg *DriveConfig) *DriveStore {
	return &DriveStore{
		service:         service,
		rootID:          cfg.RootFolderID,
		credentialMode:  cfg.CredentialMode,
		resolveTimeout:  time.Duration(cfg.ResolveTimeoutInSeconds) * time.Second,
		uploadTimeout:   time.Duration(cfg.UploadTimeoutInSeconds) * time.Second,
		downloadTimeout: time.Duration(cfg.DownloadTimeoutInSeconds) * time.Second,
		folders:         make(map[string]*model.FolderHandle),
		keyLocks:        make(map[string]*sync.Mutex),
		sleep:           time.Sleep,
	}
}

// RootID returns the configured root folder id.
func (s *DriveStore) RootID() string { return s.rootID }

// keyLock returns the mutex guarding resolution of the given product key,
// creating it on first use.
func (s *DriveStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

// cachedFolder returns the cached handle for key, if any.
func (s *DriveStore) cachedFolder(key string) (*model.FolderHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.folders[key]
	return h, ok
}

// cacheFolder stores a resolved handle for the rest of the run.
func (s *DriveStore) cacheFolder(key string, h *model.FolderHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[key] = h
}

// ResolveFolder returns the folder named key under the root, creating it if
// absent. Repeated calls for the same key within one run return the same
// handle; only the first call touches the Drive API.
func (s *DriveStore) ResolveFolder(ctx context.Context, key string) (*model.FolderHandle, error) {
	if h, ok := s.cachedFolder(key); ok {
		return h, nil
	}

	// Serialize lookup-or-create per key so concurrent workers cannot both
	// miss the lookup and create duplicate folders.
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if h, ok := s.cachedFolder(key); ok {
		return h, nil
	}

	ctx, cancel := opCtx(ctx, s.resolveTimeout)
	defer cancel()

	var found *drive.File
	err := s.withRetry(ctx, "resolve-folder", func() error {
		q := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents and trashed = false",
			escapeQuery(key), folderMimeType, s.rootID)
		resp, err := s.service.Files.List().Q(q).Fields("files(id,name)").Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Files) > 0 {
			found = resp.Files[0]
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapErr("resolve-folder", key, err)
	}

	if found == nil {
		err = s.withRetry(ctx, "create-folder", func() error {
			f, err := s.service.Files.Create(&drive.File{
				Name:     key,
				MimeType: folderMimeType,
				Parents:  []string{s.rootID},
			}).Fields("id,name").Context(ctx).Do()
			if err != nil {
				return err
			}
			found = f
			return nil
		})
		if err != nil {
			return nil, s.wrapErr("create-folder", key, err)
		}
	}

	handle := &model.FolderHandle{ID: found.Id, Name: key, ParentID: s.rootID}
	s.cacheFolder(key, handle)
	return handle, nil
}

// UploadFile writes data as name inside the given folder and returns a link
// to the uploaded file. An existing file with the same name is updated in
// place (stable names across reruns), otherwise a new file is created.
func (s *DriveStore) UploadFile(ctx context.Context, folderID string, name string, mimeType string, data []byte) (string, error) {
	ctx, cancel := opCtx(ctx, s.uploadTimeout)
	defer cancel()

	var existingID string
	err := s.withRetry(ctx, "find-file", func() error {
		q := fmt.Sprintf("name='%s' and '%s' in parents and trashed = false", escapeQuery(name), folderID)
		resp, err := s.service.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(resp.Files) > 0 {
			existingID = resp.Files[0].Id
		}
		return nil
	})
	if err != nil {
		return "", s.wrapErr("find-file", name, err)
	}

	var uploaded *drive.File
	err = s.withRetry(ctx, "upload-file", func() error {
		media := bytes.NewReader(data)
		if existingID != "" {
			f, err := s.service.Files.Update(existingID, &drive.File{}).
				Media(media, googleapi.ContentType(mimeType)).
				Fields("id,webViewLink").Context(ctx).Do()
			if err != nil {
				return err
			}
			uploaded = f
			return nil
		}
		f, err := s.service.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
			Media(media, googleapi.ContentType(mimeType)).
			Fields("id,webViewLink").Context(ctx).Do()
		if err != nil {
			return err
		}
		uploaded = f
		return nil
	})
	if err != nil {
		return "", s.wrapErr("upload-file", name, err)
	}

	if uploaded.WebViewLink != "" {
		return uploaded.WebViewLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", uploaded.Id), nil
}

// DownloadFile fetches a file's content by id. Used by the Pub/Sub trigger
// path to pull the batch CSV and images JSON out of Drive.
func (s *DriveStore) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	ctx, cancel := opCtx(ctx, s.downloadTimeout)
	defer cancel()

	var content []byte
	err := s.withRetry(ctx, "download-file", func() error {
		resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		content = data
		return nil
	})
	if err != nil {
		return nil, s.wrapErr("download-file", fileID, err)
	}
	return content, nil
}

// wrapErr classifies a failed store call. A 401 means the token stopped
// working mid-run, which is a credential failure for the whole batch rather
// than a per-product storage fault; everything else is scoped to the
// affected key.
func (s *DriveStore) wrapErr(op string, key string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return &model.AuthError{Mode: s.credentialMode, Err: err}
	}
	return &model.StorageError{Op: op, Key: key, Err: err}
}

// opCtx bounds one store call with the given deadline. A zero timeout
// leaves the caller's context untouched.
func opCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// withRetry runs fn up to driveMaxAttempts times, backing off exponentially
// with jitter between attempts. Non-retryable API errors fail immediately.
func (s *DriveStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= driveMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		// An expired deadline or canceled context cannot recover on retry.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		if attempt < driveMaxAttempts {
			delay := driveBaseDelay*time.Duration(1<<(attempt-1)) +
				time.Duration(rand.Int63n(int64(500*time.Millisecond)))
			s.sleep(delay)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, driveMaxAttempts, lastErr)
}

// isRetryable reports whether the error is a transient Drive API failure.
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	// Network-level failures without an HTTP status are treated as transient.
	return true
}

// escapeQuery escapes single quotes and backslashes for a Drive query string.
func escapeQuery(in string) string {
	out := strings.ReplaceAll(in, `\`, `\\`)
	return strings.ReplaceAll(out, `'`, `\'`)
}
