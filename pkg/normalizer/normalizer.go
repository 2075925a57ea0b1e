// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package normalizer

import (
	"github.com/teradata-labs/llxcore/pkg/core"
)

// Request is the caller's raw message plus prior history and ephemeral
// settings, before normalization.
type Request struct {
	Message           core.Content
	History           []core.Content
	Tools             []core.ToolSchema
	Provider          string
	EphemeralSettings map[string]any
	AgentID           string
	PromptID          string

	ReasoningEnabled     bool
	ThinkingBudgetTokens int
	StripThinking        bool
}

// knownProviders is the set of provider names Normalize accepts; any other
// name, including the aliases factory.DriverFor also maps (azure, mistral,
// ollama, huggingface, gemini, ...), is rejected with a ConfigError.
// Accepting a new name means adding it here, plus a provider-specific
// filter in filterForProvider if that vendor needs one.
var knownProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"google":    true,
	"custom":    true,
}

// Normalize produces a core.NormalizedRequest from a Request.
func Normalize(req Request) (*core.NormalizedRequest, error) {
	if !knownProviders[req.Provider] {
		return nil, &core.ConfigError{Provider: req.Provider, Reason: "unknown provider"}
	}

	cli, params, behavior, headers, err := separateSettings(req.EphemeralSettings)
	if err != nil {
		return nil, err
	}

	filterForProvider(req.Provider, params)
	filterForProvider(req.Provider, behavior)

	history := promoteThinking(req.Provider, req.History, req.ReasoningEnabled, req.StripThinking, params)

	contents := make([]core.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, req.Message)

	return &core.NormalizedRequest{
		Contents: contents,
		Tools:    transformTools(req.Provider, req.Tools),
		ProviderOptions: core.ProviderOptions{
			CLISettings:   cli,
			ModelParams:   params,
			ModelBehavior: behavior,
			CustomHeaders: headers,
		},
		AgentID:  req.AgentID,
		PromptID: req.PromptID,
	}, nil
}

// separateSettings splits ephemeral settings into the four normalized
// buckets, resolving aliases and stripping provider-config keys from all of
// them. Unknown (non-alias, non-config) keys default to modelParams.
func separateSettings(settings map[string]any) (cli, params, behavior map[string]any, headers map[string]string, err error) {
	cli = map[string]any{}
	params = map[string]any{}
	behavior = map[string]any{}
	headers = map[string]string{}

	for rawKey, value := range settings {
		key := normalizeAlias(rawKey)
		if providerConfigKeys[key] {
			continue
		}

		switch {
		case key == "tools.disabled" || key == "tools.allowed":
			cli[key] = value
		case key == "modelBehavior.stripThinking":
			behavior["stripThinking"] = value
		case isCustomHeaderKey(key):
			s, ok := value.(string)
			if !ok {
				return nil, nil, nil, nil, &core.ValidationError{Key: rawKey, Expected: "string", Got: value}
			}
			headers[headerName(key)] = s
		default:
			params[key] = value
		}
	}
	return cli, params, behavior, headers, nil
}

func isCustomHeaderKey(key string) bool {
	return len(key) > len("header.") && key[:len("header.")] == "header."
}

func headerName(key string) string { return key[len("header."):] }

// filterForProvider drops fields the target provider rejects. Anthropic's
// treatment of seed was inconsistent in the source; this normalizes on
// always dropping it (spec Open Question 1).
func filterForProvider(provider string, bucket map[string]any) {
	if provider == "anthropic" {
		delete(bucket, "seed")
	}
}

// transformTools converts caller-supplied tool schemas into the shape the
// driver expects; the wire-level native descriptor (OpenAI function,
// Anthropic input_schema, Google functionDeclaration) is built by the driver
// itself from these fields, so no transformation is needed here beyond
// passing the schema through unchanged per provider.
func transformTools(_ string, tools []core.ToolSchema) []core.ToolSchema {
	out := make([]core.ToolSchema, len(tools))
	copy(out, tools)
	return out
}

// promoteThinking enables Anthropic thinking when the caller requested
// reasoning, and honors strip-thinking configuration while preserving the
// invariant that a thinking block preceding a tool_call is never silently
// dropped.
func promoteThinking(provider string, history []core.Content, reasoningEnabled, stripThinking bool, params map[string]any) []core.Content {
	if provider == "anthropic" && reasoningEnabled {
		thinking, _ := params["thinking"].(map[string]any)
		if thinking == nil {
			thinking = map[string]any{}
		}
		thinking["budgetTokens"] = params["thinkingBudgetTokens"]
		params["thinking"] = thinking
	}

	if !stripThinking {
		return history
	}
	return stripThinkingBlocks(history)
}

// stripThinkingBlocks removes thinking blocks from history, except where a
// thinking block immediately precedes a tool_call block in the same
// message: those are replaced with a redacted_thinking marker rather than
// removed, since some vendors reject a tool_call whose preceding reasoning
// vanished entirely.
func stripThinkingBlocks(history []core.Content) []core.Content {
	out := make([]core.Content, len(history))
	for i, c := range history {
		blocks := make([]core.Block, 0, len(c.Blocks))
		for j, b := range c.Blocks {
			if b.Type != core.BlockThinking {
				blocks = append(blocks, b)
				continue
			}
			if precedesToolCall(c.Blocks, j) {
				blocks = append(blocks, core.Block{
					Type:        core.BlockThinking,
					Thought:     "[redacted]",
					SourceField: b.SourceField,
					Signature:   b.Signature,
				})
				continue
			}
			// dropped
		}
		out[i] = core.Content{Speaker: c.Speaker, Blocks: blocks}
	}
	return out
}

func precedesToolCall(blocks []core.Block, idx int) bool {
	for k := idx + 1; k < len(blocks); k++ {
		if blocks[k].Type == core.BlockToolCall {
			return true
		}
		if blocks[k].Type == core.BlockText {
			return false
		}
	}
	return false
}

// ValidateProfile checks a profile has the fields required for normalization
// and returns core.ProfileInvalid otherwise.
func ValidateProfile(p *core.Profile) error {
	if p.Version == 0 {
		return &core.ProfileInvalid{Name: p.Provider, Reason: "missing version"}
	}
	if p.Provider == "" || p.Model == "" {
		return &core.ProfileInvalid{Name: p.Provider, Reason: "missing provider/model"}
	}
	return nil
}
