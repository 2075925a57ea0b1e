// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
	"github.com/teradata-labs/llxcore/pkg/normalizer"
)

// SecretResolver resolves the API key/OAuth token for a standard profile;
// the core never owns key material beyond a single call, so the caller
// supplies this.
type SecretResolver func(p *core.Profile) (secret string, oauth bool)

// SubProfileResolver expands a loadbalancer profile's Profiles[] names into
// concrete core.SubProfile values (reading them back out of profile
// storage).
type SubProfileResolver func(names []string) ([]core.SubProfile, error)

// StandardCredentialBuilder builds call credentials for a single,
// non-loadbalanced profile. Matches factory.CredentialsForProfile's
// signature, which (unlike CredentialBuilder) reads a custom baseUrl
// straight out of p.ModelParams.
type StandardCredentialBuilder func(p *core.Profile, secret string, oauth bool) llm.Credentials

// Router consults the active profile: standard profiles call their driver
// directly, loadbalancer profiles go through a LoadBalancer.
type Router struct {
	log       *zap.Logger
	driverFor DriverFactory
	credsFor  StandardCredentialBuilder
	spCreds   CredentialBuilder
	secrets   SecretResolver
	subs      SubProfileResolver
	bus       *confirmation.Bus

	loadBalancers map[string]*LoadBalancer // keyed by profile name, built once per session

	limitersMu sync.Mutex
	limiters   map[string]*llm.RateLimiter // keyed by provider, standard-profile path only
}

// New builds a Router. credsFor builds credentials for a standard profile;
// spCreds builds them for a loadbalancer sub-profile.
func New(log *zap.Logger, driverFor DriverFactory, credsFor StandardCredentialBuilder, spCreds CredentialBuilder, secrets SecretResolver, subs SubProfileResolver, bus *confirmation.Bus) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		log:           log,
		driverFor:     driverFor,
		credsFor:      credsFor,
		spCreds:       spCreds,
		secrets:       secrets,
		subs:          subs,
		bus:           bus,
		loadBalancers: make(map[string]*LoadBalancer),
		limiters:      make(map[string]*llm.RateLimiter),
	}
}

// Generate dispatches req against profile p, returning the event stream.
func (r *Router) Generate(ctx context.Context, profileName string, p *core.Profile, req *core.NormalizedRequest) (<-chan core.Event, error) {
	if err := normalizer.ValidateProfile(p); err != nil {
		return nil, err
	}
	if p.Type == core.ProfileLoadBalancer {
		return r.generateLoadBalanced(ctx, profileName, p, req)
	}
	return r.generateStandard(ctx, p, req)
}

// generateStandard calls the provider's driver directly, behind a
// per-provider token-bucket limiter: a standard profile has no LoadBalancer
// to fail over through, so this is the only backstop against a 429 burst
// for it.
func (r *Router) generateStandard(ctx context.Context, p *core.Profile, req *core.NormalizedRequest) (<-chan core.Event, error) {
	driver, err := r.driverFor(p.Provider)
	if err != nil {
		return nil, err
	}
	secret, oauth := "", false
	if r.secrets != nil {
		secret, oauth = r.secrets(p)
	}
	cred := r.credsFor(p, secret, oauth)

	rl := r.limiterFor(p.Provider)
	result, err := rl.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return driver.Generate(ctx, req, cred)
	})
	if err != nil {
		return nil, err
	}
	return result.(<-chan core.Event), nil
}

// limiterFor returns the provider's rate limiter, building one on first use.
func (r *Router) limiterFor(provider string) *llm.RateLimiter {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	rl, ok := r.limiters[provider]
	if !ok {
		cfg := llm.DefaultRateLimiterConfig()
		cfg.Logger = r.log.With(zap.String("provider", provider))
		rl = llm.NewRateLimiter(cfg)
		r.limiters[provider] = rl
	}
	return rl
}

// Close stops every provider rate limiter this Router has started.
func (r *Router) Close() error {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	for _, rl := range r.limiters {
		rl.Close()
	}
	return nil
}

func (r *Router) generateLoadBalanced(ctx context.Context, profileName string, p *core.Profile, req *core.NormalizedRequest) (<-chan core.Event, error) {
	lb, ok := r.loadBalancers[profileName]
	if !ok {
		if r.subs == nil {
			return nil, &core.ConfigError{Provider: p.Provider, Reason: "no sub-profile resolver configured for loadbalancer profile"}
		}
		subs, err := r.subs(p.Profiles)
		if err != nil {
			return nil, err
		}
		lb = NewLoadBalancer(r.log, subs, p.Policy, r.driverFor, r.spCreds, r.bus, 0)
		r.loadBalancers[profileName] = lb
	}
	return lb.Generate(ctx, req)
}
