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

// Package cloud defines the application configuration, loaded from TOML
// files, and the clients for the external services the batch pipeline talks
// to: Google Drive, Vertex AI, BigQuery, Cloud Storage and Pub/Sub.
//
// Structs:
//   - DriveConfig / OAuthRefreshConfig / ServiceAccountConfig: the remote
//     store location and the tagged credential variants.
//   - VideoRenderConfig: the external video render service endpoint.
//   - PromptTemplates: text templates for the blog generator.
//   - VertexAiLLMModel: per-model generation settings.
//   - BigQueryDataSource / Storage / TopicSubscription: persistence, archive
//     and trigger plumbing.
//   - Config: the top-level aggregate.
package cloud

import "google.golang.org/genai"

// Credential modes recognized in [drive].credential_mode.
const (
	CredentialModeOAuthRefresh   = "oauth_refresh"
	CredentialModeServiceAccount = "service_account"
)

// DefaultSafetySettings are the non-restrictive content thresholds applied
// to the blog model. Listing titles and descriptions are trusted input.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// OAuthRefreshConfig holds the delegated-user credential material. The
// refresh token is exchanged once at startup for a short-lived access token.
type OAuthRefreshConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	TokenURI     string `toml:"token_uri"` // Optional override; defaults to Google's token endpoint.
}

// ServiceAccountConfig holds the service-account credential material. Either
// a key file path or inline key JSON may be provided; the file wins when both
// are set.
type ServiceAccountConfig struct {
	KeyFile string `toml:"key_file"`
	KeyJSON string `toml:"key_json"`
}

// DriveConfig describes the remote store: where artifacts land and how the
// pipeline authenticates. CredentialMode selects one of the two variants;
// the rest of the pipeline only ever sees the resulting token source.
type DriveConfig struct {
	RootFolderID             string               `toml:"root_folder_id"`  // Parent of all per-product folders. Required.
	CredentialMode           string               `toml:"credential_mode"` // "oauth_refresh" or "service_account".
	OAuth                    OAuthRefreshConfig   `toml:"oauth"`
	ServiceAccount           ServiceAccountConfig `toml:"service_account"`
	UploadTimeoutInSeconds   int                  `toml:"upload_timeout_in_seconds"`   // Per-file upload deadline.
	ResolveTimeoutInSeconds  int                  `toml:"resolve_timeout_in_seconds"`  // Folder lookup-or-create deadline.
	DownloadTimeoutInSeconds int                  `toml:"download_timeout_in_seconds"` // Per-file download deadline (Pub/Sub path).
}

// VideoRenderConfig points at the external render service that assembles the
// product video. The service is an opaque capability; only its HTTP contract
// is known here.
type VideoRenderConfig struct {
	Endpoint         string `toml:"endpoint"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// PromptTemplates holds the text templates for prompts sent to the blog model.
type PromptTemplates struct {
	BlogPrompt string `toml:"blog"`
}

// VertexAiLLMModel configures one generative model, keyed by a logical name
// in the agent_models map (the blog generator uses "blog-writer").
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"`         // Requests per second allowed against the model.
	TimeoutInSeconds   int     `toml:"timeout_in_seconds"` // Deadline for a single generation call.
}

// BigQueryDataSource configures where batch outcome rows are persisted.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset"`
	OutcomeTable string `toml:"outcome_table"`
}

// Storage configures the GCS bucket that receives archived batch reports.
type Storage struct {
	ReportBucket string `toml:"report_bucket"`
}

// TopicSubscription configures one Pub/Sub subscription, keyed by a logical
// name (the batch trigger listener uses "BatchTrigger").
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Config is the top-level application configuration, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		ThreadPoolSize  int    `toml:"thread_pool_size"` // Batch worker pool size.
	} `toml:"application"`
	Drive              DriveConfig                  `toml:"drive"`
	VideoRender        VideoRenderConfig            `toml:"video_render"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	Storage            Storage                      `toml:"storage"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
}

// NewConfig creates a Config with its map fields initialized so the TOML
// decoder can populate them without nil checks.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}
