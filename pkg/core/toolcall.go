// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package core

import "time"

// ToolCallState is a state in the scheduled-tool-call lifecycle:
// scheduled -> awaiting_approval? -> executing -> (success | error | cancelled).
type ToolCallState string

const (
	ToolCallScheduled       ToolCallState = "scheduled"
	ToolCallAwaitingApproval ToolCallState = "awaiting_approval"
	ToolCallExecuting       ToolCallState = "executing"
	ToolCallSuccess         ToolCallState = "success"
	ToolCallError           ToolCallState = "error"
	ToolCallCancelled       ToolCallState = "cancelled"
)

// IsTerminal reports whether the state is immutable.
func (s ToolCallState) IsTerminal() bool {
	switch s {
	case ToolCallSuccess, ToolCallError, ToolCallCancelled:
		return true
	default:
		return false
	}
}

// CancelOutcome is the reason a tool call moved to ToolCallCancelled.
type CancelOutcome string

const (
	CancelOutcomeTimeout        CancelOutcome = "timeout"
	CancelOutcomeUserCancel     CancelOutcome = "cancel"
	CancelOutcomeModifiedByUser CancelOutcome = "modify_with_editor"
)

// ConfirmationOutcome is the operator's response to a tool_confirmation_request.
type ConfirmationOutcome string

const (
	ProceedOnce      ConfirmationOutcome = "proceed_once"
	ProceedAlways    ConfirmationOutcome = "proceed_always"
	Cancel           ConfirmationOutcome = "cancel"
	ModifyWithEditor ConfirmationOutcome = "modify_with_editor"
)

// PolicyDecision is what the PolicyEngine returns for a given call.
type PolicyDecision string

const (
	PolicyAllow    PolicyDecision = "ALLOW"
	PolicyDeny     PolicyDecision = "DENY"
	PolicyAskUser  PolicyDecision = "ASK_USER"
)

// ScheduledToolCall tracks one tool call through its lifecycle.
type ScheduledToolCall struct {
	Request     ToolCallRequest
	State       ToolCallState
	ScheduledAt time.Time
	Result      string
	ErrorType   string
	ErrorMsg    string
	CancelOutcome CancelOutcome
}

// Response synthesizes the tool_response block for this call's current
// terminal state. Callers should only invoke this once the state is terminal.
func (c *ScheduledToolCall) Response() Block {
	switch c.State {
	case ToolCallSuccess:
		return ToolResponseBlock(c.Request.CallID, c.Request.Name, c.Result, "")
	case ToolCallCancelled:
		return ToolResponseBlock(c.Request.CallID, c.Request.Name, "Tool execution cancelled by user", "")
	case ToolCallError:
		return ToolResponseBlock(c.Request.CallID, c.Request.Name, "", c.ErrorMsg)
	default:
		return ToolResponseBlock(c.Request.CallID, c.Request.Name, "", "tool call did not complete")
	}
}

// Batch is a set of tool calls scheduled together from one ToolCallAssembler
// completion. A callId appears at most once in a Batch.
type Batch struct {
	ID    string
	Calls []*ScheduledToolCall
}

// AllTerminal reports whether every call in the batch has reached a terminal state.
func (b *Batch) AllTerminal() bool {
	for _, c := range b.Calls {
		if !c.State.IsTerminal() {
			return false
		}
	}
	return true
}
