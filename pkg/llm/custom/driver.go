// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package custom drives non-standard vendor endpoints for the LoadBalancer's
// bucket policy. Most "custom" backends observed in the wild (Chutes,
// MiniMax, and other OpenAI-compatible resellers) speak the same SSE chat
// completions shape as pkg/llm/openai with a different base URL and
// authentication header; this driver keeps that shape but lets the base URL
// be fully caller-supplied rather than defaulted.
package custom

import (
	"context"

	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
	"github.com/teradata-labs/llxcore/pkg/llm/openai"
)

// Driver implements llm.Driver for a generic OpenAI-compatible vendor
// endpoint. cred.BaseURL is required; there is no default.
type Driver struct {
	inner *openai.Driver
}

func New() *Driver { return &Driver{inner: openai.New()} }

func (d *Driver) Name() string { return "custom" }

func (d *Driver) Generate(ctx context.Context, req *core.NormalizedRequest, cred llm.Credentials) (<-chan core.Event, error) {
	if cred.BaseURL == "" {
		return nil, &core.ConfigError{Provider: "custom", Reason: "baseUrl is required for custom vendor endpoints"}
	}
	return d.inner.Generate(ctx, req, cred)
}
