// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package toolcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/policy"
)

type fakeExecutor struct {
	result string
	err    error
	delay  time.Duration
}

func (f *fakeExecutor) Execute(ctx context.Context, req core.ToolCallRequest) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.result, f.err
}

type recordingObserver struct {
	mu        sync.Mutex
	updates   int
	completes int
	final     *core.Batch
}

func (r *recordingObserver) OnToolCallsUpdate(b *core.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
}

func (r *recordingObserver) OnAllToolCallsComplete(b *core.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes++
	r.final = b
}

func newBatch(calls ...*core.ScheduledToolCall) *core.Batch {
	return &core.Batch{ID: "batch_1", Calls: calls}
}

func TestScheduler_AllowedCallSucceeds(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: false})
	sched := New(zaptest.NewLogger(t), pe, nil, &fakeExecutor{result: "ok"}, nil)

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "read_file"}})
	out := sched.Schedule(context.Background(), batch)

	require.True(t, out.AllTerminal())
	assert.Equal(t, core.ToolCallSuccess, out.Calls[0].State)
	assert.Equal(t, "ok", out.Calls[0].Result)
}

func TestScheduler_DeniedCallSynthesizesPolicyError(t *testing.T) {
	pe := policy.New(policy.Config{DisabledTools: []string{"shell"}})
	bus := confirmation.New(zaptest.NewLogger(t), 0)
	sched := New(zaptest.NewLogger(t), pe, bus, &fakeExecutor{}, nil)

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "shell"}})
	out := sched.Schedule(context.Background(), batch)

	assert.Equal(t, core.ToolCallError, out.Calls[0].State)
	assert.Equal(t, "policy", out.Calls[0].ErrorType)
	resp := out.Calls[0].Response()
	assert.Equal(t, core.BlockToolResponse, resp.Type)
	assert.NotEmpty(t, resp.Error)
}

func TestScheduler_AskUserProceedOnceExecutes(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: true})
	bus := confirmation.New(zaptest.NewLogger(t), 0)
	sched := New(zaptest.NewLogger(t), pe, bus, &fakeExecutor{result: "done"}, nil)

	ctx := context.Background()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	go func() {
		msg := <-sub
		bus.Respond(msg.CorrelationID, core.ProceedOnce, nil, true)
	}()

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "write_file"}})
	out := sched.Schedule(ctx, batch)

	assert.Equal(t, core.ToolCallSuccess, out.Calls[0].State)
	assert.Equal(t, "done", out.Calls[0].Result)
}

func TestScheduler_AskUserCancelSynthesizesCancelledResponse(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: true})
	bus := confirmation.New(zaptest.NewLogger(t), 0)
	sched := New(zaptest.NewLogger(t), pe, bus, &fakeExecutor{}, nil)

	ctx := context.Background()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	go func() {
		msg := <-sub
		bus.Respond(msg.CorrelationID, core.Cancel, nil, false)
	}()

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "write_file"}})
	out := sched.Schedule(ctx, batch)

	require.Equal(t, core.ToolCallCancelled, out.Calls[0].State)
	assert.Equal(t, core.CancelOutcomeUserCancel, out.Calls[0].CancelOutcome)
	resp := out.Calls[0].Response()
	assert.Equal(t, "Tool execution cancelled by user", resp.Result)
}

func TestScheduler_AskUserProceedAlwaysUpdatesPolicyCache(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: true})
	bus := confirmation.New(zaptest.NewLogger(t), 0)
	sched := New(zaptest.NewLogger(t), pe, bus, &fakeExecutor{result: "ok"}, nil)

	ctx := context.Background()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	go func() {
		msg := <-sub
		bus.Respond(msg.CorrelationID, core.ProceedAlways, nil, true)
	}()

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "write_file"}})
	sched.Schedule(ctx, batch)

	assert.Equal(t, core.PolicyAllow, pe.Decide("write_file"))
}

func TestScheduler_ExecutionErrorRecorded(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: false})
	sched := New(zaptest.NewLogger(t), pe, nil, &fakeExecutor{err: errors.New("boom")}, nil)

	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "shell"}})
	out := sched.Schedule(context.Background(), batch)

	assert.Equal(t, core.ToolCallError, out.Calls[0].State)
	assert.Equal(t, "execution", out.Calls[0].ErrorType)
}

func TestScheduler_CancellationDuringExecutionSynthesizesCancelled(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: false})
	sched := New(zaptest.NewLogger(t), pe, nil, &fakeExecutor{result: "ok", delay: 200 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	batch := newBatch(&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "shell"}})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	out := sched.Schedule(ctx, batch)

	assert.Equal(t, core.ToolCallCancelled, out.Calls[0].State)
}

func TestScheduler_ObserverFiresUpdatesAndCompleteExactlyOnce(t *testing.T) {
	pe := policy.New(policy.Config{RequireApproval: false})
	obs := &recordingObserver{}
	sched := New(zaptest.NewLogger(t), pe, nil, &fakeExecutor{result: "ok"}, obs)

	batch := newBatch(
		&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c1", Name: "a"}},
		&core.ScheduledToolCall{Request: core.ToolCallRequest{CallID: "c2", Name: "b"}},
	)
	sched.Schedule(context.Background(), batch)

	require.NotNil(t, obs.final)
	assert.Equal(t, 1, obs.completes)
	assert.True(t, obs.final.AllTerminal())
	assert.Greater(t, obs.updates, 0)
}
