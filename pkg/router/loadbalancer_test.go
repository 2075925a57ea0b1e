// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
)

type stubDriver struct {
	name    string
	err     error
	events  []core.Event
}

func (s *stubDriver) Name() string { return s.name }

func (s *stubDriver) Generate(ctx context.Context, req *core.NormalizedRequest, cred llm.Credentials) (<-chan core.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan core.Event, len(s.events))
	for _, ev := range s.events {
		out <- ev
	}
	close(out)
	return out, nil
}

func drain(t *testing.T, ch <-chan core.Event) []core.Event {
	t.Helper()
	var got []core.Event
	for ev := range ch {
		got = append(got, ev)
	}
	return got
}

func subs(names ...string) []core.SubProfile {
	out := make([]core.SubProfile, len(names))
	for i, n := range names {
		out[i] = core.SubProfile{Name: n, ProviderName: "stub-" + n}
	}
	return out
}

func TestLoadBalancer_RoundRobinAdvancesIndex(t *testing.T) {
	calls := map[string]int{}
	driverFor := func(provider string) (llm.Driver, error) {
		calls[provider]++
		return &stubDriver{name: provider, events: []core.Event{{Kind: core.EventFinish, FinishReason: core.FinishStop}}}, nil
	}

	lb := NewLoadBalancer(zaptest.NewLogger(t), subs("a", "b"), core.PolicyRoundRobin, driverFor,
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} }, nil, 1)

	ch1, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	drain(t, ch1)

	ch2, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	drain(t, ch2)

	assert.Equal(t, 1, calls["stub-a"])
	assert.Equal(t, 1, calls["stub-b"])
}

func TestLoadBalancer_FailoverSkipsExhaustedSubProfile(t *testing.T) {
	driverFor := func(provider string) (llm.Driver, error) {
		if provider == "stub-a" {
			return &stubDriver{name: provider, err: &core.QuotaError{Provider: "a"}}, nil
		}
		return &stubDriver{name: provider, events: []core.Event{{Kind: core.EventFinish, FinishReason: core.FinishStop}}}, nil
	}

	lb := NewLoadBalancer(zaptest.NewLogger(t), subs("a", "b"), core.PolicyFailover, driverFor,
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} }, nil, 1)

	ch, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	events := drain(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, core.FinishStop, events[0].FinishReason)

	// "a" must now be marked exhausted and skipped on the next call too.
	ch2, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	drain(t, ch2)
}

func TestLoadBalancer_ExhaustedWhenEverySubProfileFails(t *testing.T) {
	driverFor := func(provider string) (llm.Driver, error) {
		return &stubDriver{name: provider, err: &core.QuotaError{Provider: provider}}, nil
	}

	lb := NewLoadBalancer(zaptest.NewLogger(t), subs("a", "b"), core.PolicyFailover, driverFor,
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} }, nil, 1)

	_, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.Error(t, err)
	var exhausted *core.LoadBalancerExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ElementsMatch(t, []string{"a", "b"}, exhausted.Attempted)
}

func TestLoadBalancer_TPMThresholdSkipsLowTPMUntilFailover(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	origNow := nowFunc
	nowFunc = func() time.Time { return base }
	defer func() { nowFunc = origNow }()

	spA := core.SubProfile{Name: "a", ProviderName: "stub-a", ModelParams: map[string]any{"tpm_threshold": 100.0}}
	spB := core.SubProfile{Name: "b", ProviderName: "stub-b", ModelParams: map[string]any{"tpm_threshold": 100.0}}

	driverFor := func(provider string) (llm.Driver, error) {
		return &stubDriver{name: provider, events: []core.Event{
			{Kind: core.EventUsage, Usage: core.Usage{PromptTokens: 200, CandidatesTokens: 0}},
			{Kind: core.EventFinish, FinishReason: core.FinishStop},
		}}, nil
	}

	lb := NewLoadBalancer(zaptest.NewLogger(t), []core.SubProfile{spA, spB}, core.PolicyTPMThreshold, driverFor,
		func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} }, nil, 1)

	// First call: both sub-profiles start under threshold (TPM=0 < 100), so
	// neither qualifies and the ordered fallback picks the first one ("a").
	ch, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	drain(t, ch)

	// After the call, "a" has observed TPM 200 >= 100, so it is the first
	// sub-profile at or above threshold and is picked again; "b" (TPM 0) is
	// the low-TPM one that gets skipped.
	ch2, err := lb.Generate(context.Background(), &core.NormalizedRequest{})
	require.NoError(t, err)
	drain(t, ch2)
}

func TestLoadBalancer_BucketStaticTokenPassesThroughWithoutRefreshToken(t *testing.T) {
	var gotToken string
	driverFor := func(provider string) (llm.Driver, error) {
		return &stubDriver{name: provider, events: []core.Event{{Kind: core.EventFinish, FinishReason: core.FinishStop}}}, nil
	}
	credsFor := func(sp core.SubProfile) llm.Credentials {
		return llm.Credentials{}
	}

	sp := core.SubProfile{
		Name: "bucket-1", ProviderName: "stub-bucket",
		AuthToken: "stale-token",
	}
	lb := NewLoadBalancer(zaptest.NewLogger(t), []core.SubProfile{sp}, core.PolicyBucket, driverFor, credsFor, nil, 1)

	// resolveToken with no RefreshToken just passes AuthToken through.
	gotToken = lb.resolveToken(context.Background(), sp)
	assert.Equal(t, "stale-token", gotToken)
}

func TestLoadBalancer_ResolveTokenRaisesBucketAuthOnRefreshFailure(t *testing.T) {
	driverFor := func(provider string) (llm.Driver, error) { return nil, nil }
	credsFor := func(sp core.SubProfile) llm.Credentials { return llm.Credentials{} }

	bus := confirmation.New(zaptest.NewLogger(t), 0)
	defer bus.Close()

	msgs, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	go func() {
		for msg := range msgs {
			if msg.Type == confirmation.BucketAuthRequest {
				bus.RespondBucketAuth(msg.CorrelationID, true)
			}
		}
	}()

	sp := core.SubProfile{
		Name:         "bucket-1",
		ProviderName: "stub-bucket",
		AuthToken:    "stale-token",
		RefreshToken: "refresh-tok",
		TokenURL:     "http://127.0.0.1:1/token", // connection refused: refresh fails fast
	}
	lb := NewLoadBalancer(zaptest.NewLogger(t), []core.SubProfile{sp}, core.PolicyBucket, driverFor, credsFor, bus, 1)

	got := lb.resolveToken(context.Background(), sp)
	assert.Equal(t, "stale-token", got, "falls back to the stale token once re-auth is acknowledged")
}
