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

// Package loopdetect observes a ProviderDriver's event stream and decides
// when to terminate a runaway turn: identical consecutive tool calls,
// chanted content, or too many turns in one prompt.
package loopdetect

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DefaultIdenticalToolCallThreshold is the consecutive-identical-call count
// that trips CONSECUTIVE_IDENTICAL_TOOL_CALLS.
const DefaultIdenticalToolCallThreshold = 50

// IdenticalToolCallDetector hashes (name, canonical(args)) for each observed
// tool call and trips once the same hash repeats consecutively past the
// threshold.
type IdenticalToolCallDetector struct {
	threshold int
	lastHash  uint64
	hasLast   bool
	count     int
}

// NewIdenticalToolCallDetector builds a detector. threshold <= 0 uses the default.
func NewIdenticalToolCallDetector(threshold int) *IdenticalToolCallDetector {
	if threshold <= 0 {
		threshold = DefaultIdenticalToolCallThreshold
	}
	return &IdenticalToolCallDetector{threshold: threshold}
}

// Observe folds in one tool call. It returns true the moment the
// consecutive-identical count reaches the threshold.
func (d *IdenticalToolCallDetector) Observe(name string, args map[string]any) bool {
	h := canonicalHash(name, args)
	if d.hasLast && h == d.lastHash {
		d.count++
	} else {
		d.count = 1
		d.lastHash = h
		d.hasLast = true
	}
	return d.count >= d.threshold
}

// Reset clears accumulated state (e.g. at turn boundaries).
func (d *IdenticalToolCallDetector) Reset() {
	d.hasLast = false
	d.count = 0
}

// canonicalHash hashes name plus a stable, key-sorted JSON encoding of args
// so that argument re-ordering (which carries no semantic meaning in a JSON
// object) does not defeat duplicate detection.
func canonicalHash(name string, args map[string]any) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(canonicalJSON(args))
	return h.Sum64()
}

func canonicalJSON(args map[string]any) []byte {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, keyValue{Key: k, Value: args[k]})
	}
	b, err := json.Marshal(ordered)
	if err != nil {
		return nil
	}
	return b
}

type keyValue struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}
