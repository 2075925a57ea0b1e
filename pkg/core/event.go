// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package core

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventContent          EventKind = "content"
	EventToolCallFragment EventKind = "tool_call_fragment"
	EventUsage            EventKind = "usage"
	EventFinish           EventKind = "finish"
	EventError            EventKind = "error"
)

// FinishReason mirrors the vendor-reported stop reason.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// ToolCallFragment is a partial vendor-streamed piece of a tool call, addressed
// by index. Either NameDelta or ArgsDelta (or both) may be set.
type ToolCallFragment struct {
	Index     int
	CallID    string
	NameDelta string
	ArgsDelta string
}

// Event is the tagged-variant type a ProviderDriver streams:
// Event = Content | ToolCallFragment | Usage | Finish | Error.
type Event struct {
	Kind EventKind

	// EventContent
	TextDelta     string
	ThinkingDelta string
	ThinkingSig   string

	// EventToolCallFragment
	Fragment ToolCallFragment

	// EventUsage
	Usage Usage

	// EventFinish
	FinishReason FinishReason

	// EventError
	Err error
}
