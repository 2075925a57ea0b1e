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

// Package google drives Google's generateContent wire protocol using the
// streamGenerateContent SSE variant.
package google

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Driver implements llm.Driver for Google's generative language API.
type Driver struct {
	HTTPClient *http.Client
}

func New() *Driver { return &Driver{HTTPClient: &http.Client{Timeout: 120 * time.Second}} }

func (d *Driver) Name() string { return "google" }

type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
	FunctionResp *functionResp `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate streams events for one Google call. Google has no incremental
// tool-call fragment protocol: each streamed chunk carries a complete
// functionCall, so the driver emits each one as a single fragment with both
// name and args populated in one event. Successive functionCalls in the
// stream get successive indices (0, 1, ...) and call IDs google_call_<index>.
func (d *Driver) Generate(ctx context.Context, req *core.NormalizedRequest, cred llm.Credentials) (<-chan core.Event, error) {
	base := cred.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	apiURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?key=%s&alt=sse", base, cred.Model, cred.APIKey)

	names := make([]string, len(req.Tools))
	for i, t := range req.Tools {
		names[i] = t.Name
	}
	toolNames := llm.BuildToolNameMap(names)

	body, err := json.Marshal(generateRequest{
		Contents: convertContents(req.Contents),
		Tools:    convertTools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("google: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range cred.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &core.NetworkError{Provider: "google", Cause: err}
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
	fragIdx := 0
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

		var resp generateResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			continue
		}
		if len(resp.Candidates) > 0 {
			cand := resp.Candidates[0]
			for _, p := range cand.Content.Parts {
				if p.Text != "" {
					events <- core.Event{Kind: core.EventContent, TextDelta: p.Text}
				}
				if p.FunctionCall != nil {
					args, _ := json.Marshal(p.FunctionCall.Args)
					events <- core.Event{Kind: core.EventToolCallFragment, Fragment: core.ToolCallFragment{
						Index:     fragIdx,
						CallID:    fmt.Sprintf("google_call_%d", fragIdx),
						NameDelta: llm.ReverseToolName(toolNames, p.FunctionCall.Name),
						ArgsDelta: string(args),
					}}
					fragIdx++
				}
			}
			if cand.FinishReason != "" {
				events <- core.Event{Kind: core.EventFinish, FinishReason: mapFinish(cand.FinishReason)}
			}
		}
		if resp.UsageMetadata != nil {
			events <- core.Event{Kind: core.EventUsage, Usage: core.Usage{
				PromptTokens:     resp.UsageMetadata.PromptTokenCount,
				CandidatesTokens: resp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			}}
		}
	}
	if err := scanner.Err(); err != nil {
		events <- core.Event{Kind: core.EventError, Err: fmt.Errorf("google: reading stream: %w", err)}
	}
}

func mapFinish(r string) core.FinishReason {
	switch r {
	case "STOP":
		return core.FinishStop
	case "MAX_TOKENS":
		return core.FinishLength
	case "SAFETY", "RECITATION":
		return core.FinishContentFilter
	default:
		return core.FinishStop
	}
}

func convertContents(contents []core.Content) []content {
	out := make([]content, 0, len(contents))
	for _, c := range contents {
		role := "user"
		if c.Speaker == core.SpeakerAI {
			role = "model"
		}
		var parts []part
		for _, b := range c.Blocks {
			switch b.Type {
			case core.BlockText:
				parts = append(parts, part{Text: b.Text})
			case core.BlockToolCall:
				parts = append(parts, part{FunctionCall: &functionCall{Name: b.Name, Args: b.Parameters}})
			case core.BlockToolResponse:
				resp := map[string]any{"result": b.Result}
				if b.Error != "" {
					resp = map[string]any{"error": b.Error}
				}
				parts = append(parts, part{FunctionResp: &functionResp{Name: b.ToolName, Response: resp}})
			}
		}
		if len(parts) > 0 {
			out = append(out, content{Role: role, Parts: parts})
		}
	}
	return out
}

// convertTools sanitizes each tool's name to Gemini's function-declaration
// pattern (^[a-zA-Z_][a-zA-Z0-9_]*$), which rejects the colon an
// MCP-namespaced tool name carries; the reverse mapping is applied to
// streamed tool-call names in streamBody.
func convertTools(tools []core.ToolSchema) []tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]functionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, functionDeclaration{Name: llm.SanitizeToolName(t.Name), Description: t.Description, Parameters: t.Parameters})
	}
	return []tool{{FunctionDeclarations: decls}}
}

func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &core.RateLimitError{Provider: "google"}
	case status == http.StatusPaymentRequired:
		return &core.QuotaError{Provider: "google"}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &core.AuthenticationRequiredError{Provider: "google", Status: status}
	case status >= 500:
		return &core.ServerError{Provider: "google", Status: status}
	default:
		return &core.ClientError{Provider: "google", Status: status, Body: body}
	}
}
