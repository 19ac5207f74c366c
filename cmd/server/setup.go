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

package main

import (
	"context"
	"log"
	"os"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
	"github.com/ecomlisting/go-listing-batch/internal/core/services"
	"github.com/ecomlisting/go-listing-batch/internal/core/workflow"
)

// BatchTriggerSubscription is the logical name of the Pub/Sub subscription
// the batch trigger listener attaches to, as configured in the
// [topic_subscriptions] TOML table.
const BatchTriggerSubscription = "BatchTrigger"

type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	reportService *services.ReportService
	batchWorkflow *workflow.BatchWorkflow
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.reportService = &services.ReportService{
		BigqueryClient: cloudClients.BigQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		OutcomeTable:   config.BigQueryDataSource.OutcomeTable,
	}

	state.batchWorkflow = workflow.NewBatchWorkflow(config, cloudClients)

	SetupListeners(config, cloudClients, ctx)
}

// SetupListeners attaches the trigger workflow to its subscription and
// starts receiving. Missing listener config just means the Pub/Sub path is
// disabled; the HTTP path still works.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[BatchTriggerSubscription]
	if !ok {
		return
	}
	listener.SetCommand(workflow.NewBatchTriggerWorkflow(config, cloudClients))
	listener.Listen(ctx)
}
