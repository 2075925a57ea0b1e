// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
)

func standardProfile() *core.Profile {
	return &core.Profile{Version: 1, Provider: "stub", Model: "stub-model", ModelParams: map[string]any{}, EphemeralSettings: map[string]any{}}
}

func TestRouter_GenerateStandard_GoesThroughPerProviderLimiter(t *testing.T) {
	driver := &stubDriver{name: "stub", events: []core.Event{{Kind: core.EventFinish, FinishReason: core.FinishStop}}}
	r := New(zaptest.NewLogger(t),
		func(provider string) (llm.Driver, error) { return driver, nil },
		func(p *core.Profile, secret string, oauth bool) llm.Credentials { return llm.Credentials{} },
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} },
		nil, nil, nil,
	)

	events, err := r.Generate(context.Background(), "default", standardProfile(), &core.NormalizedRequest{})
	require.NoError(t, err)
	<-events // drain the finish event

	r.limitersMu.Lock()
	_, ok := r.limiters["stub"]
	r.limitersMu.Unlock()
	assert.True(t, ok, "generateStandard should have built a rate limiter for the provider")

	assert.NoError(t, r.Close())
}

func TestRouter_GenerateStandard_ReusesLimiterAcrossCalls(t *testing.T) {
	driver := &stubDriver{name: "stub", events: []core.Event{{Kind: core.EventFinish, FinishReason: core.FinishStop}}}
	r := New(zaptest.NewLogger(t),
		func(provider string) (llm.Driver, error) { return driver, nil },
		func(p *core.Profile, secret string, oauth bool) llm.Credentials { return llm.Credentials{} },
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} },
		nil, nil, nil,
	)

	first := r.limiterFor("stub")
	second := r.limiterFor("stub")
	assert.Same(t, first, second, "limiterFor should build one limiter per provider, not one per call")

	assert.NoError(t, r.Close())
}

func TestRouter_Generate_RejectsInvalidProfile(t *testing.T) {
	r := New(zaptest.NewLogger(t),
		func(provider string) (llm.Driver, error) { return nil, nil },
		func(p *core.Profile, secret string, oauth bool) llm.Credentials { return llm.Credentials{} },
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} },
		nil, nil, nil,
	)

	_, err := r.Generate(context.Background(), "default", &core.Profile{}, &core.NormalizedRequest{})
	require.Error(t, err)
}
