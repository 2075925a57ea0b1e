// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package core

// ProfileType distinguishes a single-backend profile from an ensemble.
type ProfileType string

const (
	ProfileStandard    ProfileType = "standard"
	ProfileLoadBalancer ProfileType = "loadbalancer"
)

// Policy is a LoadBalancer candidate-selection policy.
type Policy string

const (
	PolicyRoundRobin   Policy = "roundrobin"
	PolicyFailover     Policy = "failover"
	PolicyTPMThreshold Policy = "tpm_threshold"
	PolicyBucket       Policy = "bucket"
)

// Profile is the on-disk unit of provider configuration, version 1.
type Profile struct {
	Version           int               `json:"version"`
	Type              ProfileType       `json:"type,omitempty"`
	Provider          string            `json:"provider"`
	Model             string            `json:"model"`
	ModelParams       map[string]any    `json:"modelParams"`
	EphemeralSettings map[string]any    `json:"ephemeralSettings"`

	// loadbalancer type only
	Policy   Policy     `json:"policy,omitempty"`
	Profiles []string   `json:"profiles,omitempty"`
}

// SubProfile is one concrete backend in a load-balancer ensemble. The set is
// fixed at session start.
type SubProfile struct {
	Name         string
	ProviderName string
	ModelID      string
	BaseURL      string
	AuthToken    string
	ModelParams  map[string]any

	// OAuth bucket fields (policy=bucket only). When RefreshToken is set,
	// the LoadBalancer refreshes AuthToken via oauth2.TokenSource instead of
	// treating it as a static credential.
	RefreshToken string
	TokenURL     string
	ClientID     string
}

// NormalizedRequest is the output of the RequestNormalizer: everything a
// ProviderDriver needs to make one call, independent of the caller's wire
// format.
type NormalizedRequest struct {
	Contents        []Content
	Tools           []ToolSchema
	ProviderOptions ProviderOptions
	AgentID         string
	PromptID        string
}

// ToolSchema is the caller-supplied tool definition, vendor-agnostic; drivers
// translate it into their native descriptor (OpenAI function, Anthropic
// input_schema, Google functionDeclaration).
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ProviderOptions are the four normalized setting buckets produced by
// RequestNormalizer.
type ProviderOptions struct {
	CLISettings    map[string]any
	ModelParams    map[string]any
	ModelBehavior  map[string]any
	CustomHeaders  map[string]string
}
