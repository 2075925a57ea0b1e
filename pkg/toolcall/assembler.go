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

// Package toolcall assembles vendor-streamed tool-call fragments into
// complete ToolCallRequests (the ToolCallAssembler), and schedules their
// execution through the confirmation/policy pipeline (the ToolScheduler).
package toolcall

import (
	"encoding/json"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// slot accumulates the fragments for one tool-call index.
type slot struct {
	callID       string
	nameFragments []string
	argsFragments []string
	lastArgsRaw   string // most recent distinct args fragment, for duplicate suppression
}

// Assembler owns the per-turn index -> slot table described in the
// ToolCallAssembler design: name uses last-write-wins, args use string
// concatenation, duplicate fragments are suppressed.
type Assembler struct {
	slots []*slot // indexed by fragment.Index; grows on demand
	order []int   // indices in first-seen order, for deterministic Close()
}

// NewAssembler returns an empty per-turn assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AddFragment folds one streamed ToolCallFragment into the table.
func (a *Assembler) AddFragment(f core.ToolCallFragment) {
	for len(a.slots) <= f.Index {
		a.slots = append(a.slots, nil)
	}
	s := a.slots[f.Index]
	if s == nil {
		s = &slot{}
		a.slots[f.Index] = s
		a.order = append(a.order, f.Index)
	}
	if f.CallID != "" {
		s.callID = f.CallID
	}
	if f.NameDelta != "" {
		// Last-write-wins: a later fragment may correct an earlier partial name.
		s.nameFragments = append(s.nameFragments, f.NameDelta)
	}
	if f.ArgsDelta != "" {
		if f.ArgsDelta == s.lastArgsRaw {
			return // duplicate fragment: same args delta repeated verbatim
		}
		s.argsFragments = append(s.argsFragments, f.ArgsDelta)
		s.lastArgsRaw = f.ArgsDelta
	}
}

// Close finalizes every slot that has a non-empty name and call ID into a
// ToolCallRequest, decoding its concatenated args as JSON. A slot whose args
// fail to decode is wrapped as {"value": <raw>} rather than dropped — the
// tool itself validates its arguments. Slots with no name (an incomplete
// fragment the stream never named) or no call ID are skipped. Duplicate callIDs across
// slots are suppressed, keeping only the first occurrence, matching the
// no-two-identical-callId invariant enforced again at the driver layer.
func (a *Assembler) Close() []core.ToolCallRequest {
	seen := make(map[string]bool, len(a.order))
	out := make([]core.ToolCallRequest, 0, len(a.order))

	for _, idx := range a.order {
		s := a.slots[idx]
		if s == nil || len(s.nameFragments) == 0 {
			continue
		}
		name := s.nameFragments[len(s.nameFragments)-1]
		callID := s.callID
		if callID == "" {
			continue
		}
		if seen[callID] {
			continue
		}
		seen[callID] = true

		rawArgs := ""
		for _, frag := range s.argsFragments {
			rawArgs += frag
		}

		args := map[string]any{}
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				args = map[string]any{"value": rawArgs}
			}
		}

		out = append(out, core.ToolCallRequest{
			CallID: callID,
			Name:   name,
			Args:   args,
		})
	}
	return out
}
