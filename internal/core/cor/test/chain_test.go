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

// Package cor_test contains unit tests for the chain-of-responsibility
// framework: data piping between commands, error short-circuiting and the
// continue-on-failure mode.
package cor_test

import (
	goctx "context"
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
)

// appendCommand appends its suffix to the string piped through the chain.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	fail   bool
	ran    bool
}

func newAppendCommand(name string, suffix string, fail bool) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, fail: fail}
}

func (c *appendCommand) Execute(context cor.Context) {
	c.ran = true
	if c.fail {
		context.AddError(c.GetName(), errors.New("forced failure"))
		return
	}
	in := context.Get(c.GetInputParam()).(string)
	context.Add(cor.CtxOut, in+c.suffix)
}

func newChainContext(input string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(goctx.Background())
	ctx.Add(cor.CtxIn, input)
	return ctx
}

// TestChainPipesOutputToInput verifies each command's CtxOut value becomes
// the next command's CtxIn value.
func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(newAppendCommand("first", "-a", false))
	chain.AddCommand(newAppendCommand("second", "-b", false))

	ctx := newChainContext("seed")
	chain.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "seed-a-b", ctx.Get(cor.CtxIn).(string))
}

// TestChainStopsOnError verifies commands after a failure are skipped by
// default.
func TestChainStopsOnError(t *testing.T) {
	failing := newAppendCommand("failing", "", true)
	skipped := newAppendCommand("skipped", "-x", false)

	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(failing)
	chain.AddCommand(skipped)

	ctx := newChainContext("seed")
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.True(t, failing.ran)
	assert.False(t, skipped.ran)
}

// TestChainContinueOnFailure verifies the continue mode keeps executing
// after an error while the errors remain recorded.
func TestChainContinueOnFailure(t *testing.T) {
	failing := newAppendCommand("failing", "", true)
	second := newAppendCommand("second", "-x", false)

	chain := cor.NewBaseChain("test-chain")
	chain.ContinueOnFailure(true)
	chain.AddCommand(failing)
	chain.AddCommand(second)

	ctx := newChainContext("seed")
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.True(t, second.ran)
	_, ok := ctx.GetErrors()["failing"]
	assert.True(t, ok)
}

// TestContextErrorsAreCopied verifies GetErrors returns a snapshot, not the
// live map.
func TestContextErrorsAreCopied(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.AddError("one", errors.New("first"))

	snapshot := ctx.GetErrors()
	snapshot["two"] = errors.New("injected")

	assert.Equal(t, 1, len(ctx.GetErrors()))
}
