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

package router

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
)

var (
	subProfileAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llxcore_loadbalancer_attempts_total",
		Help: "Total LoadBalancer attempts per sub-profile and outcome.",
	}, []string{"sub_profile", "outcome"})

	subProfileTPM = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "llxcore_loadbalancer_observed_tpm",
		Help: "Observed tokens-per-minute per sub-profile over the last 5 minutes.",
	}, []string{"sub_profile"})
)

func init() {
	prometheus.MustRegister(subProfileAttempts, subProfileTPM)
}

// DriverFactory resolves the stateless driver for a provider name. Matches
// pkg/llm/factory.DriverFor's signature without binding the LoadBalancer to
// that concrete package, so tests can substitute a stub.
type DriverFactory func(provider string) (llm.Driver, error)

// CredentialBuilder builds call credentials for one sub-profile. Matches
// pkg/llm/factory.CredentialsForSubProfile's signature.
type CredentialBuilder func(sp core.SubProfile) llm.Credentials

// LoadBalancer dispatches a NormalizedRequest across a fixed set of
// sub-profiles per spec §4.2's policy table, tracking TPM and retrying
// failures according to their error category.
type LoadBalancer struct {
	log        *zap.Logger
	subs       []core.SubProfile
	policy     core.Policy
	driverFor  DriverFactory
	credsFor   CredentialBuilder
	bus        *confirmation.Bus
	retryCount int

	mu          sync.Mutex
	tpm         map[string]*tpmRing
	lastIndex   int
	bucketIdx   map[string]int // name -> stable bucket index for BUCKET_AUTH prompts
	tokenSrc    map[string]oauth2.TokenSource
	exhausted   map[string]bool // sub-profiles marked out for this session (e.g. quota)
	authRetried map[string]bool // sub-profiles that already used their one post-401/403 retry
}

// NewLoadBalancer builds a LoadBalancer over a fixed sub-profile set.
// retryCount <= 0 defaults to 3 (failover_retry_count per sub-profile).
func NewLoadBalancer(log *zap.Logger, subs []core.SubProfile, policy core.Policy, driverFor DriverFactory, credsFor CredentialBuilder, bus *confirmation.Bus, retryCount int) *LoadBalancer {
	if log == nil {
		log = zap.NewNop()
	}
	if retryCount <= 0 {
		retryCount = 3
	}
	tpm := make(map[string]*tpmRing, len(subs))
	bucketIdx := make(map[string]int, len(subs))
	for i, sp := range subs {
		tpm[sp.Name] = &tpmRing{}
		bucketIdx[sp.Name] = i
	}
	return &LoadBalancer{
		log:         log,
		subs:        subs,
		policy:      policy,
		driverFor:   driverFor,
		credsFor:    credsFor,
		bus:         bus,
		retryCount:  retryCount,
		tpm:         tpm,
		bucketIdx:   bucketIdx,
		tokenSrc:    make(map[string]oauth2.TokenSource),
		exhausted:   make(map[string]bool),
		authRetried: make(map[string]bool),
	}
}

// Generate selects a sub-profile per the configured policy and streams its
// response, transparently retrying/failing over according to the error
// categorization table until a sub-profile succeeds or every candidate is
// exhausted.
func (lb *LoadBalancer) Generate(ctx context.Context, req *core.NormalizedRequest) (<-chan core.Event, error) {
	attempted := make([]string, 0, len(lb.subs))

	for len(attempted) < len(lb.subs)*lb.retryCount {
		sp, ok := lb.next(attempted)
		if !ok {
			return nil, &core.LoadBalancerExhaustedError{Attempted: attempted}
		}
		attempted = append(attempted, sp.Name)

		driver, err := lb.driverFor(sp.ProviderName)
		if err != nil {
			subProfileAttempts.WithLabelValues(sp.Name, "config_error").Inc()
			continue
		}

		cred := lb.credsFor(sp)
		if sp.RefreshToken != "" {
			// Bucket (OAuth) sub-profile: refresh the access token rather than
			// trusting whatever credsFor resolved from the static AuthToken.
			cred.OAuthToken = lb.resolveToken(ctx, sp)
		}

		ch, err := driver.Generate(ctx, req, cred)
		if err != nil {
			lb.handleFailure(sp, err)
			if plan := classify(err); !plan.retryable && !plan.bucketFailover {
				return nil, err // Client or unrecognized: terminal, no further attempts
			}
			continue
		}

		out := lb.tee(sp, ch)
		subProfileAttempts.WithLabelValues(sp.Name, "started").Inc()
		return out, nil
	}

	return nil, &core.LoadBalancerExhaustedError{Attempted: attempted}
}

// tee wraps the driver's event channel, recording TPM usage as usage events
// pass through, and re-surfacing stream-level errors so a caller driving a
// single Generate() call still observes EventError without the LoadBalancer
// itself needing to inspect every event.
func (lb *LoadBalancer) tee(sp core.SubProfile, in <-chan core.Event) <-chan core.Event {
	out := make(chan core.Event, 16)
	go func() {
		defer close(out)
		for ev := range in {
			if ev.Kind == core.EventUsage {
				lb.recordUsage(sp, ev.Usage)
			}
			out <- ev
		}
	}()
	return out
}

func (lb *LoadBalancer) recordUsage(sp core.SubProfile, u core.Usage) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	ring := lb.tpm[sp.Name]
	if ring == nil {
		ring = &tpmRing{}
		lb.tpm[sp.Name] = ring
	}
	now := nowFunc()
	ring.Add(u.PromptTokens+u.CandidatesTokens, now)
	subProfileTPM.WithLabelValues(sp.Name).Set(ring.ObservedTPM(now))
}

func (lb *LoadBalancer) handleFailure(sp core.SubProfile, err error) {
	plan := classify(err)
	subProfileAttempts.WithLabelValues(sp.Name, "error").Inc()

	failNow := plan.bucketFailover
	if plan.oneRetryFirst {
		lb.mu.Lock()
		if !lb.authRetried[sp.Name] {
			lb.authRetried[sp.Name] = true
			failNow = false // allow token refresh on the next attempt at this sub-profile
		}
		lb.mu.Unlock()
	}
	if failNow {
		lb.mu.Lock()
		lb.exhausted[sp.Name] = true
		lb.mu.Unlock()
	}
	lb.log.Warn("loadbalancer: sub-profile attempt failed",
		zap.String("sub_profile", sp.Name), zap.Error(err), zap.Bool("bucket_failover", failNow))
}

// next selects the next candidate sub-profile per the active policy, or
// (core.SubProfile{}, false) when every candidate has already been excluded.
func (lb *LoadBalancer) next(attempted []string) (core.SubProfile, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	alreadyTried := make(map[string]int, len(attempted))
	for _, n := range attempted {
		alreadyTried[n]++
	}

	switch lb.policy {
	case core.PolicyRoundRobin:
		for i := 0; i < len(lb.subs); i++ {
			idx := (lb.lastIndex + 1 + i) % len(lb.subs)
			sp := lb.subs[idx]
			if lb.exhausted[sp.Name] {
				continue
			}
			lb.lastIndex = idx
			return sp, true
		}
		return core.SubProfile{}, false

	case core.PolicyTPMThreshold:
		threshold, _ := tpmThreshold(lb.subs)
		now := nowFunc()
		for _, sp := range lb.subs {
			if lb.exhausted[sp.Name] || alreadyTried[sp.Name] > 0 {
				continue
			}
			ring := lb.tpm[sp.Name]
			if ring == nil || ring.ObservedTPM(now) >= threshold {
				return sp, true
			}
		}
		// every candidate is over threshold or tried: fall through to ordered list
		for _, sp := range lb.subs {
			if lb.exhausted[sp.Name] || alreadyTried[sp.Name] > 0 {
				continue
			}
			return sp, true
		}
		return core.SubProfile{}, false

	default: // failover, bucket: ordered list, skip exhausted/already-tried-enough
		for _, sp := range lb.subs {
			if lb.exhausted[sp.Name] {
				continue
			}
			return sp, true
		}
		return core.SubProfile{}, false
	}
}

// tpmThreshold extracts a shared tpm_threshold modelParam, defaulting to 0
// (always eligible) when unset.
func tpmThreshold(subs []core.SubProfile) (float64, bool) {
	for _, sp := range subs {
		if v, ok := sp.ModelParams["tpm_threshold"].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

// resolveToken returns sp.AuthToken as-is for static credentials, or a
// refreshed access token when the sub-profile carries OAuth refresh
// material (policy=bucket). On a refresh failure it raises a
// BUCKET_AUTH_CONFIRMATION_REQUEST so an operator can complete re-auth
// out-of-band before the next attempt at this sub-profile; either way it
// still returns the stale token so the current attempt can proceed (and
// fail through the normal classify/retry path if it's truly expired).
func (lb *LoadBalancer) resolveToken(ctx context.Context, sp core.SubProfile) string {
	if sp.RefreshToken == "" {
		return sp.AuthToken
	}
	lb.mu.Lock()
	src, ok := lb.tokenSrc[sp.Name]
	if !ok {
		cfg := &oauth2.Config{
			ClientID: sp.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: sp.TokenURL},
		}
		src = oauth2.ReuseTokenSource(nil, cfg.TokenSource(context.Background(), &oauth2.Token{
			AccessToken:  sp.AuthToken,
			RefreshToken: sp.RefreshToken,
			Expiry:       time.Now().Add(-time.Second), // force a refresh on first use
		}))
		lb.tokenSrc[sp.Name] = src
	}
	lb.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		lb.log.Warn("loadbalancer: bucket token refresh failed", zap.String("sub_profile", sp.Name), zap.Error(err))
		if lb.bus != nil {
			idx := lb.bucketIdx[sp.Name]
			resp, waitErr := lb.bus.RequestBucketAuth(ctx, sp.ProviderName, sp.Name, idx, len(lb.subs), 0)
			if waitErr != nil {
				lb.log.Warn("loadbalancer: bucket re-auth prompt unanswered", zap.String("sub_profile", sp.Name), zap.Error(waitErr))
			} else if !resp.Confirmed {
				lb.log.Warn("loadbalancer: bucket re-auth declined", zap.String("sub_profile", sp.Name))
			}
		}
		return sp.AuthToken
	}
	return tok.AccessToken
}
