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

// Package openai drives the OpenAI-compatible chat-completions wire
// protocol. It also serves Azure OpenAI, Mistral, Ollama, and HuggingFace
// TGI, which speak the same SSE shape with a different base URL and auth
// header; Driver.Generate takes the base URL and headers from
// llm.Credentials rather than hardcoding an endpoint.
package openai

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
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Driver implements llm.Driver for the OpenAI-compatible protocol.
type Driver struct {
	HTTPClient *http.Client
}

// New constructs a Driver with a default HTTP client timeout.
func New() *Driver {
	return &Driver{HTTPClient: &http.Client{Timeout: 120 * time.Second}}
}

func (d *Driver) Name() string { return "openai" }

type chatMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCallDelta `json:"tool_calls,omitempty"`
}

type functionSpec struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type toolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []toolSpec    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
	Stream     bool          `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   *string         `json:"content"`
			ToolCalls []toolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate streams events for one OpenAI-compatible call.
func (d *Driver) Generate(ctx context.Context, req *core.NormalizedRequest, cred llm.Credentials) (<-chan core.Event, error) {
	endpoint := cred.BaseURL
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	names := make([]string, len(req.Tools))
	for i, t := range req.Tools {
		names[i] = t.Name
	}
	toolNames := llm.BuildToolNameMap(names)

	body, err := json.Marshal(chatRequest{
		Model:      cred.Model,
		Messages:   convertContents(req.Contents),
		Tools:      convertTools(req.Tools),
		ToolChoice: toolChoice(req.Tools),
		Stream:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cred.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cred.APIKey)
	}
	for k, v := range cred.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkErr("openai", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyStatusErr("openai", resp.StatusCode, string(body))
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
	seen := map[string]bool{} // dedup duplicate callIds within this stream
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
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]
			if choice.Delta.Content != nil && *choice.Delta.Content != "" {
				events <- core.Event{Kind: core.EventContent, TextDelta: *choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				if tc.ID != "" {
					if seen[tc.ID] {
						continue
					}
					seen[tc.ID] = true
				}
				events <- core.Event{Kind: core.EventToolCallFragment, Fragment: core.ToolCallFragment{
					Index:     tc.Index,
					CallID:    tc.ID,
					NameDelta: llm.ReverseToolName(toolNames, tc.Function.Name),
					ArgsDelta: tc.Function.Arguments,
				}}
			}
			if choice.FinishReason != "" {
				events <- core.Event{Kind: core.EventFinish, FinishReason: core.FinishReason(choice.FinishReason)}
			}
		}
		if chunk.Usage != nil {
			events <- core.Event{Kind: core.EventUsage, Usage: core.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CandidatesTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}}
		}
	}
	if err := scanner.Err(); err != nil {
		events <- core.Event{Kind: core.EventError, Err: fmt.Errorf("openai: reading stream: %w", err)}
	}
}

func convertContents(contents []core.Content) []chatMessage {
	out := make([]chatMessage, 0, len(contents))
	for _, c := range contents {
		role := roleFor(c.Speaker)
		var text strings.Builder
		var toolCalls []toolCallDelta
		for _, b := range c.Blocks {
			switch b.Type {
			case core.BlockText:
				text.WriteString(b.Text)
			case core.BlockToolCall:
				args, _ := json.Marshal(b.Parameters)
				toolCalls = append(toolCalls, toolCallDelta{
					ID: b.ID,
					Function: struct {
						Name      string `json:"name,omitempty"`
						Arguments string `json:"arguments,omitempty"`
					}{Name: b.Name, Arguments: string(args)},
				})
			case core.BlockToolResponse:
				content := b.Result
				if b.Error != "" {
					content = b.Error
				}
				out = append(out, chatMessage{Role: "tool", Content: content, Name: b.ToolName, ToolCallID: b.CallID})
			}
		}
		if text.Len() > 0 || len(toolCalls) > 0 {
			out = append(out, chatMessage{Role: role, Content: text.String(), ToolCalls: toolCalls})
		}
	}
	return out
}

func roleFor(s core.Speaker) string {
	switch s {
	case core.SpeakerHuman:
		return "user"
	case core.SpeakerAI:
		return "assistant"
	default:
		return "tool"
	}
}

// convertTools sanitizes each tool's name for the chat-completions wire
// format (which, like Azure OpenAI/Bedrock/Gemini, rejects the colon an
// MCP-namespaced tool name carries); the reverse mapping is applied to
// streamed tool-call names in streamBody.
func convertTools(tools []core.ToolSchema) []toolSpec {
	out := make([]toolSpec, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolSpec{Type: "function", Function: functionSpec{Name: llm.SanitizeToolName(t.Name), Parameters: t.Parameters}})
	}
	return out
}

func toolChoice(tools []core.ToolSchema) string {
	if len(tools) == 0 {
		return ""
	}
	return "auto"
}

func classifyNetworkErr(provider string, err error) error {
	return &core.NetworkError{Provider: provider, Cause: err}
}

func classifyStatusErr(provider string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &core.RateLimitError{Provider: provider}
	case status == http.StatusPaymentRequired:
		return &core.QuotaError{Provider: provider}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &core.AuthenticationRequiredError{Provider: provider, Status: status}
	case status >= 500:
		return &core.ServerError{Provider: provider, Status: status}
	default:
		return &core.ClientError{Provider: provider, Status: status, Body: body}
	}
}
