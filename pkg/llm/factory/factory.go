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

// Package factory builds a llm.Driver and its call credentials from a
// core.Profile or core.SubProfile, so ProviderRouter never hand-rolls a
// vendor switch statement inline.
package factory

import (
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm"
	"github.com/teradata-labs/llxcore/pkg/llm/anthropic"
	"github.com/teradata-labs/llxcore/pkg/llm/custom"
	"github.com/teradata-labs/llxcore/pkg/llm/google"
	"github.com/teradata-labs/llxcore/pkg/llm/openai"
)

// DriverFor returns a new stateless driver for a provider name on every
// call, each with its own *http.Client. Drivers carry no per-call state, so
// a returned value is also safe to reuse across concurrent calls with
// different credentials.
func DriverFor(provider string) (llm.Driver, error) {
	switch provider {
	case "openai", "azure", "azureopenai", "mistral", "ollama", "huggingface":
		return openai.New(), nil
	case "anthropic":
		return anthropic.New(), nil
	case "google", "gemini":
		return google.New(), nil
	case "custom":
		return custom.New(), nil
	default:
		return nil, &core.ConfigError{Provider: provider, Reason: "unknown provider"}
	}
}

// CredentialsForSubProfile builds llm.Credentials for one sub-profile.
func CredentialsForSubProfile(sp core.SubProfile) llm.Credentials {
	cred := llm.Credentials{
		BaseURL: sp.BaseURL,
		Model:   sp.ModelID,
	}
	if sp.AuthToken != "" {
		if headers, ok := sp.ModelParams["customHeaders"].(map[string]string); ok {
			cred.Headers = headers
		}
		if usesOAuth(sp.ModelParams) {
			cred.OAuthToken = sp.AuthToken
		} else {
			cred.APIKey = sp.AuthToken
		}
	}
	return cred
}

// CredentialsForProfile builds llm.Credentials for a standard profile plus
// resolved API key/OAuth token (the caller resolves the secret; the core
// never owns key material beyond a single call).
func CredentialsForProfile(p *core.Profile, secret string, oauth bool) llm.Credentials {
	cred := llm.Credentials{Model: p.Model}
	if baseURL, ok := p.ModelParams["baseUrl"].(string); ok {
		cred.BaseURL = baseURL
	}
	if oauth {
		cred.OAuthToken = secret
	} else {
		cred.APIKey = secret
	}
	return cred
}

func usesOAuth(params map[string]any) bool {
	v, _ := params["authType"].(string)
	return v == "oauth"
}
