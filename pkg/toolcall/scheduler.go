// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package toolcall

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/policy"
)

// AwaitingApprovalTimeout is the 5-minute timer armed while a call sits in
// awaiting_approval; it fires the call to cancelled/timeout if no response
// arrives.
const AwaitingApprovalTimeout = 5 * time.Minute

// Executor runs one tool call's side effects and returns its result text.
// Concrete tool bodies (shell, file edit, ...) are injected by the caller;
// the scheduler only owns the lifecycle around the call, not its execution.
type Executor interface {
	Execute(ctx context.Context, req core.ToolCallRequest) (result string, err error)
}

// Observer receives scheduler lifecycle callbacks. onAllToolCallsComplete
// fires exactly once per batch; onToolCallsUpdate may fire multiple times as
// individual calls change state.
type Observer interface {
	OnToolCallsUpdate(batch *core.Batch)
	OnAllToolCallsComplete(batch *core.Batch)
}

// NoopObserver implements Observer with no-op methods, for callers that only
// care about the final batch via a direct Schedule return.
type NoopObserver struct{}

func (NoopObserver) OnToolCallsUpdate(*core.Batch)      {}
func (NoopObserver) OnAllToolCallsComplete(*core.Batch) {}

// Scheduler drives scheduled tool calls through
// scheduled -> awaiting_approval? -> executing -> (success|error|cancelled),
// consulting a policy.Engine and, for ASK_USER outcomes, a
// confirmation.Bus.
type Scheduler struct {
	log      *zap.Logger
	policy   *policy.Engine
	bus      *confirmation.Bus
	exec     Executor
	observer Observer

	mu      sync.Mutex
	batches map[string]*core.Batch
}

// New builds a Scheduler. observer may be NoopObserver{} if the caller only
// consumes the Schedule return value.
func New(log *zap.Logger, pe *policy.Engine, bus *confirmation.Bus, exec Executor, observer Observer) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Scheduler{
		log:      log,
		policy:   pe,
		bus:      bus,
		exec:     exec,
		observer: observer,
		batches:  make(map[string]*core.Batch),
	}
}

// Schedule runs every call in the batch to a terminal state and returns it.
// Cancelling ctx aborts any in-flight invocation, moves every
// awaiting_approval call to cancelled, and synthesizes tool_response blocks
// for all of them so history stays well-formed.
func (s *Scheduler) Schedule(ctx context.Context, batch *core.Batch) *core.Batch {
	s.mu.Lock()
	s.batches[batch.ID] = batch
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, call := range batch.Calls {
		call.State = core.ToolCallScheduled
		wg.Add(1)
		go func(call *core.ScheduledToolCall) {
			defer wg.Done()
			s.runOne(ctx, batch, call)
		}(call)
	}
	wg.Wait()

	s.observer.OnAllToolCallsComplete(batch)
	return batch
}

func (s *Scheduler) runOne(ctx context.Context, batch *core.Batch, call *core.ScheduledToolCall) {
	decision := s.policy.Decide(call.Request.Name)

	switch decision {
	case core.PolicyDeny:
		policyErr := &core.PolicyRejectionError{ToolName: call.Request.Name, Reason: "denied by policy"}
		call.State = core.ToolCallError
		call.ErrorType = "policy"
		call.ErrorMsg = policyErr.Error()
		s.log.Warn("tool call denied", zap.String("tool", call.Request.Name), zap.Error(policyErr))
		if s.bus != nil {
			s.bus.PublishPolicyRejection(call.Request, call.ErrorMsg)
		}
		s.observer.OnToolCallsUpdate(batch)
		return

	case core.PolicyAskUser:
		call.State = core.ToolCallAwaitingApproval
		s.observer.OnToolCallsUpdate(batch)

		outcome, proceed := s.awaitConfirmation(ctx, call)
		if !proceed {
			call.State = core.ToolCallCancelled
			call.CancelOutcome = outcome
			s.observer.OnToolCallsUpdate(batch)
			return
		}
		// ProceedOnce or ProceedAlways: fall through to execution.
	}

	call.State = core.ToolCallExecuting
	s.observer.OnToolCallsUpdate(batch)

	result, err := s.exec.Execute(ctx, call.Request)
	if ctx.Err() != nil {
		call.State = core.ToolCallCancelled
		call.CancelOutcome = core.CancelOutcomeUserCancel
		s.log.Debug("tool call cancelled mid-execution", zap.String("tool", call.Request.Name), zap.Error(&core.CancelledByUserError{}))
		s.observer.OnToolCallsUpdate(batch)
		return
	}
	if err != nil {
		toolErr := &core.ToolExecutionError{ToolName: call.Request.Name, Cause: err}
		call.State = core.ToolCallError
		call.ErrorType = "execution"
		call.ErrorMsg = toolErr.Error()
		s.log.Warn("tool call failed", zap.Error(toolErr))
	} else {
		call.State = core.ToolCallSuccess
		call.Result = result
	}
	s.observer.OnToolCallsUpdate(batch)
}

// awaitConfirmation publishes a TOOL_CONFIRMATION_REQUEST and blocks for up
// to AwaitingApprovalTimeout. It returns (cancelOutcome, false) when the
// call should not proceed, or ("", true) when it should.
func (s *Scheduler) awaitConfirmation(ctx context.Context, call *core.ScheduledToolCall) (core.CancelOutcome, bool) {
	if s.bus == nil {
		s.log.Warn("no confirmation bus wired, timing out tool call awaiting approval",
			zap.Error(&core.SchedulerTimeoutError{CallID: call.Request.CallID}))
		return core.CancelOutcomeTimeout, false
	}

	resp, err := s.bus.RequestConfirmation(ctx, call.Request, "", AwaitingApprovalTimeout)
	if err != nil {
		s.log.Warn("tool call timed out awaiting approval",
			zap.Error(&core.SchedulerTimeoutError{CallID: call.Request.CallID}), zap.NamedError("cause", err))
		return core.CancelOutcomeTimeout, false
	}

	switch resp.Outcome {
	case core.ProceedOnce:
		return "", true
	case core.ProceedAlways:
		s.policy.RememberAlways(call.Request.Name)
		return "", true
	case core.ModifyWithEditor:
		return core.CancelOutcomeModifiedByUser, false
	case core.Cancel:
		return core.CancelOutcomeUserCancel, false
	default:
		return core.CancelOutcomeUserCancel, false
	}
}
