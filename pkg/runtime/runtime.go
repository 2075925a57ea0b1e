// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runtime ties the provider-orchestration components together for
// one session: the ProviderRouter, PolicyEngine, ConfirmationBus,
// ToolScheduler, LoopDetector, and SessionRecorder are all explicitly
// constructed and passed in — there is no ambient singleton, so a process
// hosting multiple concurrent sessions builds one Context per session.
package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cconf "github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
	"github.com/teradata-labs/llxcore/pkg/loopdetect"
	"github.com/teradata-labs/llxcore/pkg/normalizer"
	"github.com/teradata-labs/llxcore/pkg/policy"
	"github.com/teradata-labs/llxcore/pkg/recorder"
	"github.com/teradata-labs/llxcore/pkg/router"
	"github.com/teradata-labs/llxcore/pkg/toolcall"

	"github.com/teradata-labs/llxcore/internal/session"
)

// maxContinuationDepth bounds the automatic empty-tool-call continuation
// retry (spec's "tool_calls finish reason with zero assembled calls" edge
// case) so a misbehaving vendor can't recurse RunTurn forever.
const maxContinuationDepth = 1

// Config wires one session's worth of collaborators. Router, Policy,
// Executor and RecorderDir are required; Log, Bus, Observer, LoopDetect and
// SessionID may be left zero. Context.New panics if Router, Policy,
// Scheduler's Executor, or RecorderDir are missing, since a RuntimeContext with a half-built
// collaborator set is a configuration bug, not a runtime condition to
// recover from.
type Config struct {
	Log *zap.Logger

	Router     *router.Router
	Policy     *policy.Engine
	Bus        *cconf.Bus
	Executor   toolcall.Executor
	Observer   toolcall.Observer
	LoopDetect loopdetect.Config

	RecorderDir string
	SessionID   string
}

// validate reports which required fields were left unset, if any.
func (cfg Config) validate() error {
	var missing []string
	if cfg.Router == nil {
		missing = append(missing, "Router")
	}
	if cfg.Policy == nil {
		missing = append(missing, "Policy")
	}
	if cfg.Executor == nil {
		missing = append(missing, "Executor")
	}
	if cfg.RecorderDir == "" {
		missing = append(missing, "RecorderDir")
	}
	if len(missing) == 0 {
		return nil
	}
	return &core.MissingRuntimeContextError{
		ProviderKey:   cfg.SessionID,
		MissingFields: missing,
		Requirement:   "runtime.Config must fully wire a session's collaborators before New",
		Remediation:   "pass non-nil Router, Policy, Executor and a non-empty RecorderDir",
	}
}

// Context owns one session's live collaborators and the running
// token/cost totals accumulated from usage events.
type Context struct {
	log *zap.Logger

	router    *router.Router
	scheduler *toolcall.Scheduler
	loop      *loopdetect.Detector
	rec       *recorder.Recorder

	mu        sync.Mutex
	sess      session.Session
	assembled []core.ToolCallRequest // last drain()'s finalized tool calls
}

// New builds a Context for one session. It panics on a half-built
// collaborator set: a RuntimeContext missing Router, Policy, Executor, or
// RecorderDir is a configuration bug, not a runtime condition to recover
// from, so the panic value is a *core.MissingRuntimeContextError carrying
// enough to diagnose which fields were left unset.
func New(cfg Config) *Context {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.validate(); err != nil {
		panic(err)
	}

	scheduler := toolcall.New(log, cfg.Policy, cfg.Bus, cfg.Executor, cfg.Observer)
	rec := recorder.New(log, cfg.RecorderDir, cfg.SessionID)
	loop := loopdetect.New(log, cfg.LoopDetect)

	return &Context{
		log:       log,
		router:    cfg.Router,
		scheduler: scheduler,
		loop:      loop,
		rec:       rec,
		sess:      session.Session{ID: cfg.SessionID, CreatedAt: time.Now().Unix()},
	}
}

// TurnResult is what one RunTurn call produces: the accumulated assistant
// text, usage, the finish reason, and — if the turn ended in tool calls —
// the scheduled (and, by the time RunTurn returns, fully executed) batch.
type TurnResult struct {
	Text         string
	Usage        core.Usage
	FinishReason core.FinishReason
	ToolCalls    *core.Batch

	// ContinuationSynthesized is set when the vendor ended the turn with
	// FinishToolCalls but assembled zero tool calls; RunTurn already
	// recovered by synthesizing llm.ContinuationPlaceholder and re-driving
	// the model once, and Text/ToolCalls above reflect that retry's result.
	ContinuationSynthesized bool
}

// RunTurn normalizes req, drives it through the Router, and assembles any
// tool-call fragments into a Batch scheduled (and awaited) via the
// ToolScheduler. It returns once the model's turn — including any tool
// execution it triggered — has fully settled.
func (c *Context) RunTurn(ctx context.Context, profileName string, profile *core.Profile, req normalizer.Request) (*TurnResult, error) {
	return c.runTurn(ctx, profileName, profile, req, 0)
}

func (c *Context) runTurn(ctx context.Context, profileName string, profile *core.Profile, req normalizer.Request, depth int) (*TurnResult, error) {
	normalized, err := normalizer.Normalize(req)
	if err != nil {
		return nil, err
	}

	if reason := c.loop.TurnStarted(); reason != loopdetect.TripNone {
		return nil, &core.LoopDetectedError{Kind: string(reason)}
	}

	events, err := c.router.Generate(ctx, profileName, profile, normalized)
	if err != nil {
		return nil, err
	}

	result, streamErr := c.drain(events)
	if streamErr != nil {
		return result, streamErr
	}

	calls := c.assembled
	for _, call := range calls {
		if reason := c.loop.ObserveToolCall(call.Name, call.Args); reason != loopdetect.TripNone {
			return result, &core.LoopDetectedError{Kind: string(reason)}
		}
	}

	switch {
	case len(calls) > 0:
		batch := newBatch(calls)
		c.scheduler.Schedule(ctx, batch)
		result.ToolCalls = batch

	case result.FinishReason == core.FinishToolCalls && depth < maxContinuationDepth:
		return c.continueAfterEmptyToolCalls(ctx, profileName, profile, req, depth)
	}

	c.mergeUsage(result.Usage)
	c.loop.ResetTurn()
	return result, nil
}

// continueAfterEmptyToolCalls handles the "tool_calls finish reason but zero
// fragments assembled" edge case: some vendors end a turn this way when a
// tool call was announced but never streamed a usable name/args pair. Per
// llm.ContinuationPlaceholder's doc comment, the recovery is to append a
// synthesized assistant acknowledgement plus a nudge and re-drive once.
func (c *Context) continueAfterEmptyToolCalls(ctx context.Context, profileName string, profile *core.Profile, req normalizer.Request, depth int) (*TurnResult, error) {
	placeholderTurn := core.Content{
		Speaker: core.SpeakerAI,
		Blocks:  []core.Block{core.TextBlock(llm.ContinuationPlaceholder)},
	}
	nudge := core.Content{
		Speaker: core.SpeakerHuman,
		Blocks:  []core.Block{core.TextBlock(llm.ContinuationPrompt)},
	}

	continued := req
	continued.History = append(append(append([]core.Content{}, req.History...), placeholderTurn), nudge)
	continued.Message = nudge

	result, err := c.runTurn(ctx, profileName, profile, continued, depth+1)
	if result != nil {
		result.ContinuationSynthesized = true
	}
	return result, err
}

// drain consumes the driver's event stream, recording every event and
// folding content/usage/finish into a TurnResult. The finalized tool calls
// are stashed on c.assembled rather than returned, since RunTurn is never
// called concurrently on the same Context and this keeps drain's signature
// focused on the result a caller actually needs immediately.
func (c *Context) drain(events <-chan core.Event) (*TurnResult, error) {
	assembler := toolcall.NewAssembler()
	var text strings.Builder
	var usage core.Usage
	var finish core.FinishReason
	var streamErr error

	for ev := range events {
		c.rec.Enqueue(ev)

		switch ev.Kind {
		case core.EventContent:
			text.WriteString(ev.TextDelta)
			if reason := c.loop.ObserveContent(ev.TextDelta); reason != loopdetect.TripNone && streamErr == nil {
				streamErr = &core.LoopDetectedError{Kind: string(reason)}
			}
		case core.EventToolCallFragment:
			assembler.AddFragment(ev.Fragment)
		case core.EventUsage:
			usage = ev.Usage
		case core.EventFinish:
			finish = ev.FinishReason
		case core.EventError:
			if streamErr == nil {
				streamErr = ev.Err
			}
		}
	}

	c.assembled = assembler.Close()

	return &TurnResult{
		Text:         text.String(),
		Usage:        usage,
		FinishReason: finish,
	}, streamErr
}

func newBatch(calls []core.ToolCallRequest) *core.Batch {
	batch := &core.Batch{ID: fmt.Sprintf("batch_%s", uuid.NewString()), Calls: make([]*core.ScheduledToolCall, len(calls))}
	for i, call := range calls {
		batch.Calls[i] = &core.ScheduledToolCall{
			Request:     call,
			State:       core.ToolCallScheduled,
			ScheduledAt: time.Now(),
		}
	}
	return batch
}

func (c *Context) mergeUsage(u core.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = c.sess.Merge(session.Session{
		CompletionTokens: c.sess.CompletionTokens + u.CandidatesTokens,
		PromptTokens:     c.sess.PromptTokens + u.PromptTokens,
		Cost:             c.sess.Cost + u.CostUSD,
		UpdatedAt:        time.Now().Unix(),
	})
}

// Session returns a snapshot of the session's accumulated token/cost state.
func (c *Context) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// RecorderFilePath returns the session journal's file path, or "" if no
// content event has opened one yet.
func (c *Context) RecorderFilePath() string {
	return c.rec.FilePath()
}

// Close flushes the session journal and stops the router's rate limiters.
func (c *Context) Close() error {
	if c.router != nil {
		c.router.Close()
	}
	return c.rec.Close()
}
