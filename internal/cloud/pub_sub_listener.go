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
// services. This file defines the Pub/Sub listener that turns trigger
// messages into batch runs. The listener itself is generic: it receives
// messages from one subscription and hands each one to an attached command.
// A message is acknowledged only when the command's chain finishes without
// errors, so a failed batch trigger is redelivered under the subscription's
// retry policy.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
)

// PubSubListener connects one subscription to one processing command.
// Listeners outlive individual API requests, so they live with the cloud
// clients rather than the HTTP layer.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for the given subscription id. The
// command may be nil at construction and attached later with SetCommand.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command. A command that is already set
// is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving messages in a background goroutine. Canceling ctx
// stops the receive loop; in-flight messages finish their chain first.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("starting pub/sub listener", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("batch-trigger-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.Error("batch trigger chain failed", "command", name, "error", e)
				}
				// No Ack and no Nack: the message redelivers after the ack
				// deadline, honoring the subscription's retry policy.
			}

			span.End()
		})

		if err != nil {
			slog.Error("pub/sub receive terminated", "error", err)
		}
	}()
}
