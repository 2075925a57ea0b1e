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

// Package anthropic drives the Anthropic messages wire protocol, including
// thinking/redacted_thinking content blocks and OAuth-token authentication.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
)

// DefaultEndpoint is used when no base URL is supplied in credentials.
const DefaultEndpoint = "https://api.anthropic.com/v1/messages"

// oauthBeta is sent alongside Authorization: Bearer when the caller supplies
// an OAuth token rather than an x-api-key.
const oauthBeta = "oauth-2025-04-20"

// Driver implements llm.Driver for Anthropic messages.
type Driver struct {
	HTTPClient *http.Client
}

func New() *Driver { return &Driver{HTTPClient: &http.Client{Timeout: 120 * time.Second}} }

func (d *Driver) Name() string { return "anthropic" }

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	Thinking  string         `json:"thinking,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Data      string         `json:"data,omitempty"` // redacted_thinking
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content2  string         `json:"content,omitempty"` // tool_result content (string form)
	IsError   bool           `json:"is_error,omitempty"`
}

type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type thinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type request struct {
	Model     string          `json:"model"`
	System    string          `json:"system,omitempty"`
	Messages  []message       `json:"messages"`
	Tools     []toolSpec      `json:"tools,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
	Thinking  *thinkingConfig `json:"thinking,omitempty"`
}

type streamEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *block `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		Thinking    string `json:"thinking,omitempty"`
		Signature   string `json:"signature,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// Generate streams events for one Anthropic call.
func (d *Driver) Generate(ctx context.Context, req *core.NormalizedRequest, cred llm.Credentials) (<-chan core.Event, error) {
	endpoint := cred.BaseURL
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	maxTokens := 4096
	if mt, ok := req.ProviderOptions.ModelParams["max_tokens"].(float64); ok {
		maxTokens = int(mt)
	}

	var thinking *thinkingConfig
	if tc, ok := req.ProviderOptions.ModelParams["thinking"].(map[string]any); ok {
		budget, _ := tc["budgetTokens"].(int)
		if budget == 0 {
			if f, ok := tc["budgetTokens"].(float64); ok {
				budget = int(f)
			}
		}
		thinking = &thinkingConfig{Type: "enabled", BudgetTokens: budget}
	}

	names := make([]string, len(req.Tools))
	for i, t := range req.Tools {
		names[i] = t.Name
	}
	toolNames := llm.BuildToolNameMap(names)

	body, err := json.Marshal(request{
		Model:     cred.Model,
		Messages:  convertContents(req.Contents),
		Tools:     convertTools(req.Tools),
		MaxTokens: maxTokens,
		Stream:    true,
		Thinking:  thinking,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	switch {
	case cred.OAuthToken != "":
		httpReq.Header.Set("Authorization", "Bearer "+cred.OAuthToken)
		httpReq.Header.Set("anthropic-beta", oauthBeta)
	case cred.APIKey != "":
		httpReq.Header.Set("x-api-key", cred.APIKey)
	}
	for k, v := range cred.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &core.NetworkError{Provider: "anthropic", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, string(b))
	}

	events := make(chan core.Event, 16)
	go func() {
		defer resp.Body.Close()
		defer close(events)
		streamBody(ctx, resp.Body, events, toolNames)
	}()
	return events, nil
}

func streamBody(ctx context.Context, body io.Reader, events chan<- core.Event, toolNames map[string]string) {
	seen := map[string]bool{}
	// toolBlockID tracks which content-block index is a tool_use, so a
	// subsequent input_json_delta can be addressed by the same index the
	// assembler expects.
	toolBlockID := map[int]string{}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			events <- core.Event{Kind: core.EventError, Err: ctx.Err()}
			return
		default:
		}

		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimPrefix(line, "data:")
		payload = strings.TrimSpace(payload)

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_start":
			if ev.ContentBlock == nil {
				continue
			}
			switch ev.ContentBlock.Type {
			case "tool_use":
				if seen[ev.ContentBlock.ID] {
					continue
				}
				seen[ev.ContentBlock.ID] = true
				toolBlockID[ev.Index] = ev.ContentBlock.ID
				events <- core.Event{Kind: core.EventToolCallFragment, Fragment: core.ToolCallFragment{
					Index:     ev.Index,
					CallID:    ev.ContentBlock.ID,
					NameDelta: llm.ReverseToolName(toolNames, ev.ContentBlock.Name),
				}}
			case "thinking":
				events <- core.Event{Kind: core.EventContent, ThinkingDelta: ev.ContentBlock.Thinking, ThinkingSig: ev.ContentBlock.Signature}
			}
		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				events <- core.Event{Kind: core.EventContent, TextDelta: ev.Delta.Text}
			case "thinking_delta":
				events <- core.Event{Kind: core.EventContent, ThinkingDelta: ev.Delta.Thinking}
			case "signature_delta":
				events <- core.Event{Kind: core.EventContent, ThinkingSig: ev.Delta.Signature}
			case "input_json_delta":
				events <- core.Event{Kind: core.EventToolCallFragment, Fragment: core.ToolCallFragment{
					Index:     ev.Index,
					CallID:    toolBlockID[ev.Index],
					ArgsDelta: ev.Delta.PartialJSON,
				}}
			}
		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				events <- core.Event{Kind: core.EventFinish, FinishReason: mapStopReason(ev.Delta.StopReason)}
			}
			if ev.Usage != nil {
				events <- core.Event{Kind: core.EventUsage, Usage: core.Usage{CandidatesTokens: ev.Usage.OutputTokens}}
			}
		case "message_stop":
			if ev.Usage != nil {
				events <- core.Event{Kind: core.EventUsage, Usage: core.Usage{
					PromptTokens: ev.Usage.InputTokens, CandidatesTokens: ev.Usage.OutputTokens,
				}}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		events <- core.Event{Kind: core.EventError, Err: fmt.Errorf("anthropic: reading stream: %w", err)}
	}
}

func mapStopReason(r string) core.FinishReason {
	switch r {
	case "tool_use":
		return core.FinishToolCalls
	case "max_tokens":
		return core.FinishLength
	default:
		return core.FinishStop
	}
}

func convertContents(contents []core.Content) []message {
	out := make([]message, 0, len(contents))
	for _, c := range contents {
		role := "user"
		if c.Speaker == core.SpeakerAI {
			role = "assistant"
		}
		var blocks []block
		for _, b := range c.Blocks {
			switch b.Type {
			case core.BlockText:
				blocks = append(blocks, block{Type: "text", Text: b.Text})
			case core.BlockThinking:
				if b.Thought == "[redacted]" {
					blocks = append(blocks, block{Type: "redacted_thinking", Data: b.Signature})
				} else {
					blocks = append(blocks, block{Type: "thinking", Thinking: b.Thought, Signature: b.Signature})
				}
			case core.BlockToolCall:
				blocks = append(blocks, block{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Parameters})
			case core.BlockToolResponse:
				content := b.Result
				isErr := false
				if b.Error != "" {
					content = b.Error
					isErr = true
				}
				out = append(out, message{Role: "user", Content: []block{{Type: "tool_result", ToolUseID: b.CallID, Content2: content, IsError: isErr}}})
				continue
			}
		}
		if len(blocks) > 0 {
			out = append(out, message{Role: role, Content: blocks})
		}
	}
	return out
}

// convertTools sanitizes each tool's name for Anthropic's messages wire
// format, which rejects the colon an MCP-namespaced tool name carries; the
// reverse mapping is applied to streamed tool-call names in streamBody.
func convertTools(tools []core.ToolSchema) []toolSpec {
	out := make([]toolSpec, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolSpec{Name: llm.SanitizeToolName(t.Name), Description: t.Description, InputSchema: t.Parameters})
	}
	return out
}

func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &core.RateLimitError{Provider: "anthropic"}
	case status == http.StatusPaymentRequired:
		return &core.QuotaError{Provider: "anthropic"}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &core.AuthenticationRequiredError{Provider: "anthropic", Status: status}
	case status >= 500:
		return &core.ServerError{Provider: "anthropic", Status: status}
	default:
		return &core.ClientError{Provider: "anthropic", Status: status, Body: body}
	}
}
