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
// services. This file is the credential provider for the Drive store. The
// credential mode is resolved exactly once, at startup, into an opaque
// oauth2.TokenSource; nothing downstream ever branches on which mode
// produced it.
//
// Both paths validate eagerly: the OAuth path exchanges the refresh token
// immediately and the service-account path parses the key and mints a first
// token. A rejection at this point is a model.AuthError, which is fatal to
// the whole batch run since it signals misconfiguration rather than a
// transient fault. The returned source is wrapped in oauth2.ReuseTokenSource,
// so a batch that outlives the first access token picks up a renewed one
// transparently.
package cloud

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ecomlisting/go-listing-batch/internal/core/model"
)

// NewDriveTokenSource resolves the configured credential mode into a
// self-renewing token source for the Drive API.
func NewDriveTokenSource(ctx context.Context, cfg *DriveConfig) (oauth2.TokenSource, error) {
	switch cfg.CredentialMode {
	case CredentialModeOAuthRefresh:
		return newOAuthRefreshTokenSource(ctx, &cfg.OAuth)
	case CredentialModeServiceAccount:
		return newServiceAccountTokenSource(ctx, &cfg.ServiceAccount)
	default:
		return nil, &model.AuthError{
			Mode: cfg.CredentialMode,
			Err:  fmt.Errorf("unknown credential_mode %q", cfg.CredentialMode),
		}
	}
}

// newOAuthRefreshTokenSource exchanges a delegated user's refresh token for
// an access token. The exchange happens now, not lazily: an expired or
// revoked token must fail the run before any product is processed.
func newOAuthRefreshTokenSource(ctx context.Context, cfg *OAuthRefreshConfig) (oauth2.TokenSource, error) {
	endpoint := google.Endpoint
	if cfg.TokenURI != "" {
		endpoint = oauth2.Endpoint{TokenURL: cfg.TokenURI}
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{drive.DriveScope},
	}

	base := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	token, err := base.Token()
	if err != nil {
		return nil, &model.AuthError{Mode: CredentialModeOAuthRefresh, Err: err}
	}
	return oauth2.ReuseTokenSource(token, base), nil
}

// newServiceAccountTokenSource loads service-account key material from a
// file or inline JSON and validates it by minting a first token.
func newServiceAccountTokenSource(ctx context.Context, cfg *ServiceAccountConfig) (oauth2.TokenSource, error) {
	keyData := []byte(cfg.KeyJSON)
	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, &model.AuthError{Mode: CredentialModeServiceAccount, Err: err}
		}
		keyData = data
	}
	if len(keyData) == 0 {
		return nil, &model.AuthError{
			Mode: CredentialModeServiceAccount,
			Err:  fmt.Errorf("no key material: set key_file or key_json"),
		}
	}

	jwtConf, err := google.JWTConfigFromJSON(keyData, drive.DriveScope)
	if err != nil {
		return nil, &model.AuthError{Mode: CredentialModeServiceAccount, Err: err}
	}

	base := jwtConf.TokenSource(ctx)
	token, err := base.Token()
	if err != nil {
		return nil, &model.AuthError{Mode: CredentialModeServiceAccount, Err: err}
	}
	return oauth2.ReuseTokenSource(token, base), nil
}

// NewDriveService acquires credentials for the configured mode and returns
// an authenticated Drive API client. The client is shared by every worker
// for the duration of the run.
func NewDriveService(ctx context.Context, cfg *DriveConfig) (*drive.Service, error) {
	ts, err := NewDriveTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, &model.AuthError{Mode: cfg.CredentialMode, Err: err}
	}
	return svc, nil
}
