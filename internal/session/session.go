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
// Package session tracks per-session token/cost bookkeeping for a runtime
// context. It holds no message history of its own — that lives in the
// journal — only the running totals a RuntimeContext accumulates as usage
// events arrive from a ProviderDriver.
package session

// Session represents the running token/cost state of one provider-orchestration session.
type Session struct {
	ID               string
	Title            string
	CreatedAt        int64
	UpdatedAt        int64
	CompletionTokens int
	PromptTokens     int
	Cost             float64
	Model            string // Model used in this session (e.g., "claude-sonnet-4-6")
	Provider         string // Provider used in this session (e.g., "anthropic")
}

// Merge returns a copy of s with non-zero fields from update applied.
// This preserves existing fields like Title when receiving partial updates
// (e.g., cost/token updates from a ProviderDriver's usage events).
func (s Session) Merge(update Session) Session {
	result := s
	if update.CompletionTokens > 0 {
		result.CompletionTokens = update.CompletionTokens
	}
	if update.PromptTokens > 0 {
		result.PromptTokens = update.PromptTokens
	}
	if update.Cost > 0 {
		result.Cost = update.Cost
	}
	if update.Model != "" {
		result.Model = update.Model
	}
	if update.Provider != "" {
		result.Provider = update.Provider
	}
	if update.Title != "" {
		result.Title = update.Title
	}
	if update.UpdatedAt > 0 {
		result.UpdatedAt = update.UpdatedAt
	}
	return result
}
