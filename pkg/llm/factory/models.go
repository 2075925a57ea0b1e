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

package factory

import "github.com/teradata-labs/llxcore/internal/catwalk"

// ModelRegistry holds information about supported models across providers.
// It fronts catwalk.GetProviders so callers don't need to know the catalog
// is static data.
type ModelRegistry struct {
	models map[string][]catwalk.Model
}

// NewModelRegistry builds a registry from the known provider catalog.
func NewModelRegistry() *ModelRegistry {
	reg := &ModelRegistry{models: map[string][]catwalk.Model{}}
	for _, p := range catwalk.GetProviders() {
		reg.models[string(p.ID)] = p.Models
	}
	return reg
}

// GetModelsForProvider returns a defensive copy of the known models for a
// provider, or nil if the provider is unknown.
func (r *ModelRegistry) GetModelsForProvider(provider string) []catwalk.Model {
	models, ok := r.models[provider]
	if !ok {
		return nil
	}
	out := make([]catwalk.Model, len(models))
	copy(out, models)
	return out
}

// GetAllModels returns every known model across all providers.
func (r *ModelRegistry) GetAllModels() []catwalk.Model {
	var all []catwalk.Model
	for _, models := range r.models {
		all = append(all, models...)
	}
	return all
}

// HasModel reports whether a model id is known for a given provider.
func (r *ModelRegistry) HasModel(provider, modelID string) bool {
	for _, m := range r.models[provider] {
		if m.ID == modelID {
			return true
		}
	}
	return false
}
