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

// Package model defines the core data structures for the batch content
// pipeline. This file defines the error taxonomy. The four types encode how
// far a failure reaches:
//
//   - MalformedRecordError: one source row, recovered locally by dropping it.
//   - AuthError: credential acquisition, fatal to the entire run.
//   - GenerationError: one (product, kind), terminal for that kind only.
//   - StorageError: one product's folder resolution or upload, terminal for
//     the affected artifact only.
//
// All types support errors.As; callers classify with the helper predicates
// rather than string matching.
package model

import (
	"errors"
	"fmt"
)

// MalformedRecordError reports a CSV row that failed schema validation.
type MalformedRecordError struct {
	RowNumber int
	Reason    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %s", e.RowNumber, e.Reason)
}

// AuthError reports a failed credential acquisition. It is the only error
// that aborts a batch run before any product is processed.
type AuthError struct {
	Mode string // The credential mode that failed ("oauth_refresh" or "service_account").
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential acquisition failed (mode=%s): %v", e.Mode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// GenerationError reports a failed artifact generator call for one kind of
// one product.
type GenerationError struct {
	Kind   ArtifactKind
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s generation failed: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Kind, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StorageError reports a failed remote-store operation (folder resolution or
// file upload). Op names the operation for logs, e.g. "resolve-folder".
type StorageError struct {
	Op  string
	Key string // The product key or file name the operation targeted.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsAuthError reports whether err wraps an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
