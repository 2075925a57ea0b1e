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

// Package core holds the data model shared by every provider-orchestration
// component: normalized content, tool-call requests and their lifecycle,
// profiles, stream events, errors, and usage.
package core

import "fmt"

// Speaker identifies who produced a Content frame.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAI    Speaker = "ai"
	SpeakerTool  Speaker = "tool"
)

// BlockType tags the variant carried by a Block.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockThinking     BlockType = "thinking"
	BlockToolCall     BlockType = "tool_call"
	BlockToolResponse BlockType = "tool_response"
)

// ThinkingSource records which vendor field a thinking block was sourced from.
type ThinkingSource string

const (
	ThinkingSourceThinking  ThinkingSource = "thinking"
	ThinkingSourceReasoning ThinkingSource = "reasoning_content"
)

// Block is a tagged-variant piece of content inside a Content frame. Exactly
// the fields for its Type are meaningful; others are left zero.
type Block struct {
	Type BlockType

	// text
	Text string

	// thinking
	Thought      string
	SourceField  ThinkingSource
	Signature    string

	// tool_call
	ID         string // core-owned history id, "hist_tool_<suffix>"
	Name       string
	Parameters map[string]any

	// tool_response
	CallID   string
	ToolName string
	Result   string
	Error    string
}

// TextBlock constructs a text block.
func TextBlock(text string) Block { return Block{Type: BlockText, Text: text} }

// ThinkingBlock constructs a thinking block.
func ThinkingBlock(thought string, source ThinkingSource, signature string) Block {
	return Block{Type: BlockThinking, Thought: thought, SourceField: source, Signature: signature}
}

// ToolCallBlock constructs a tool_call block. id must be a history id
// ("hist_tool_<suffix>"), not the vendor callId.
func ToolCallBlock(id, name string, params map[string]any) Block {
	return Block{Type: BlockToolCall, ID: id, Name: name, Parameters: params}
}

// ToolResponseBlock constructs a tool_response block.
func ToolResponseBlock(callID, toolName, result, errMsg string) Block {
	return Block{Type: BlockToolResponse, CallID: callID, ToolName: toolName, Result: result, Error: errMsg}
}

// HistToolID formats a core-owned tool-call history id.
func HistToolID(suffix string) string {
	return fmt.Sprintf("hist_tool_%s", suffix)
}

// Content is one normalized message: a speaker and an ordered block sequence.
type Content struct {
	Speaker Speaker
	Blocks  []Block
}

// ToolCallRequest is a request to invoke a tool, as surfaced by the
// ToolCallAssembler to the ToolScheduler.
type ToolCallRequest struct {
	CallID            string
	Name              string
	Args              map[string]any
	IsClientInitiated bool
	PromptID          string
	AgentID           string
}
