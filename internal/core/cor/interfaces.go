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

// Package cor (Chain of Responsibility) provides the building blocks for the
// batch workflows. A workflow is a Chain of Commands; a shared Context object
// carries data and errors between the commands. The interfaces keep the
// framework independent of any particular pipeline step, so the same chain
// machinery drives both the HTTP submission path and the Pub/Sub trigger path.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved keys that implement data piping between
// adjacent commands: a chain moves the value a command stored under CtxOut
// into CtxIn before running the next command.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. Commands read
// their inputs from it, write their outputs to it, and record any errors.
type Context interface {
	// SetContext sets the standard Go context carrying cancellation and
	// trace information for the current step.
	SetContext(ctx context.Context)

	// GetContext returns the standard Go context for the current step.
	GetContext() context.Context

	// Add stores a key-value pair. It returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// AddError records a command failure, keyed by the command name.
	AddError(key string, err error)

	// GetErrors returns all errors recorded so far.
	GetErrors() map[string]error

	// HasErrors reports whether any command has failed.
	HasErrors() bool
}

// Command is an atomic, thread-safe unit of work within a chain.
type Command interface {
	// Execute runs the command's logic against the shared context.
	Execute(context Context)

	// GetName returns the command's unique name, used in logs, error keys
	// and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold for the
	// given context.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a sequence of commands. A Chain is itself a Command, so chains
// nest (composite pattern).
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after
	// a command records an error. Defaults to false.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
