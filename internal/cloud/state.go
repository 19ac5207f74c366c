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
// services. This file initializes and holds every external client the batch
// pipeline needs. NewCloudServiceClients runs once at startup and returns a
// single shared ServiceClients container that is passed through the
// application; nothing else constructs clients.
//
// Initialization order matters in one place: the Drive service is built
// last, after the commodity GCP clients, because its credential acquisition
// is the only step that can fail with a configuration-level AuthError and
// callers abort on that.
//
// Structs:
//   - ServiceClients: container for all initialized clients and wrappers.
//
// Functions:
//   - NewCloudServiceClients: factory that builds the container from config.
//   - Close: releases all client connections.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is the central container for every external service client
// the pipeline uses. It is created once at startup and shared by the API
// handlers, the workflows and the Pub/Sub listeners.
type ServiceClients struct {
	StorageClient   *storage.Client                         // Cloud Storage, used for archiving batch reports.
	PubsubClient    *pubsub.Client                          // Pub/Sub, used by the batch trigger listener.
	GenAIClient     *genai.Client                           // Gemini via the Vertex AI backend.
	BigQueryClient  *bigquery.Client                        // BigQuery, used for persisting batch outcome rows.
	DriveStore      *DriveStore                             // The authenticated remote store for generated artifacts.
	PubSubListeners map[string]*PubSubListener              // Active listeners, keyed by logical name from the config.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Rate-limited LLM models, keyed by logical name.
}

// Close releases all active client connections. Connections are normally
// bounded by the root context; Close gives tests and controlled shutdowns an
// explicit release.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
}

// NewCloudServiceClients initializes all Google Cloud clients from the
// loaded configuration. An AuthError from the Drive credential step is
// returned as-is so the caller can abort the process.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		slog.Error("failed to create genai client", "error", err)
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	// Listeners are created without a command; the workflow wiring attaches
	// one before Listen is called.
	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]
		agentModels[amKey] = NewQuotaAwareModel(gc, &values)
	}

	// Credential acquisition validates eagerly; a bad refresh token or key
	// file fails here, before any batch work is accepted.
	driveService, err := NewDriveService(ctx, &config.Drive)
	if err != nil {
		return nil, err
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		DriveStore:      NewDriveStore(driveService, &config.Drive),
		PubSubListeners: subscriptions,
		AgentModels:     agentModels,
	}, nil
}
