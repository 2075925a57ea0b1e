// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package llm declares the ProviderDriver contract every vendor driver
// implements, plus the shared rate-limiter, tool-name and instrumentation
// helpers they use.
package llm

import (
	"context"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// Driver is the single contract every vendor driver implements:
//
//	generateChatCompletion(NormalizedRequest, credentials) -> lazy stream of events
//
// A Driver owns no cross-call caches; callers construct a fresh one (or
// reuse a stateless value) per invocation, parameterized by the call's
// credentials. This keeps concurrent calls with different credentials
// trivially safe.
type Driver interface {
	// Name identifies the driver for logging and error messages.
	Name() string

	// Generate streams events for one call. The returned channel is closed
	// when the stream ends (after an EventFinish or EventError). The driver
	// must stop producing as soon as ctx is cancelled.
	Generate(ctx context.Context, req *core.NormalizedRequest, cred Credentials) (<-chan core.Event, error)
}

// Credentials parameterizes one call: the API key/OAuth token and endpoint
// for the target sub-profile. Drivers read it per call and keep none of it
// between calls; their HTTP client is built in New, not from Credentials.
type Credentials struct {
	APIKey    string
	OAuthToken string
	BaseURL   string
	Model     string
	Headers   map[string]string
}

// ContinuationPlaceholder is the verbatim text used for the synthesized
// "tool { content }" message when a turn finishes with tool-calls and zero
// text. Several upstreams (at least one OAuth/Chutes-style endpoint)
// require both this exact wording and the tool message's name field; it is
// copied verbatim rather than paraphrased (spec Open Question 2).
const ContinuationPlaceholder = "[Tool call acknowledged - awaiting execution]"

// ContinuationPrompt is appended as a user message to nudge the model to
// continue after a continuation is synthesized.
const ContinuationPrompt = "The tool calls above have been registered. Please continue."
