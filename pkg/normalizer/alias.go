// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package normalizer turns a caller message plus prior history into a
// core.NormalizedRequest: alias resolution, setting separation,
// provider-specific filters, tool transformation, and thinking promotion.
package normalizer

// AliasTable enumerates every accepted spelling of a setting key, mapping it
// to its canonical form. normalizeAlias is idempotent: applying it twice
// yields the same result as applying it once.
var AliasTable = map[string]string{
	"max-tokens":       "max_tokens",
	"max_tokens":       "max_tokens",
	"api-key":          "apiKey",
	"apikey":           "apiKey",
	"disabled-tools":   "tools.disabled",
	"disabledTools":    "tools.disabled",
	"allowed-tools":    "tools.allowed",
	"allowedTools":     "tools.allowed",
	"base-url":         "baseUrl",
	"baseurl":          "baseUrl",
	"tool-format":      "toolFormat",
	"temperature":      "temperature",
	"top-p":            "top_p",
	"top_p":            "top_p",
	"thinking-budget":  "modelParams.thinking.budgetTokens",
	"reasoning-effort": "modelParams.reasoning.effort",
	"strip-thinking":   "modelBehavior.stripThinking",
}

// normalizeAlias resolves a single setting key to its canonical spelling.
// Unknown keys pass through unchanged, which is what keeps the function
// idempotent: normalizeAlias(normalizeAlias(k)) == normalizeAlias(k).
func normalizeAlias(key string) string {
	if canon, ok := AliasTable[key]; ok {
		return canon
	}
	return key
}

// providerConfigKeys are stripped from every normalized setting bucket; they
// configure the provider connection itself, not request behavior.
var providerConfigKeys = map[string]bool{
	"apiKey":     true,
	"baseUrl":    true,
	"model":      true,
	"toolFormat": true,
}
