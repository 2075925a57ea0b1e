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

// Package policy decides, for each tool call the ToolScheduler is about to
// run, whether it may proceed without asking, must be refused outright, or
// needs the operator's confirmation.
package policy

import (
	"sync"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// Config configures an Engine. It mirrors the tool-permission settings a
// profile's cliSettings bucket carries (tools.disabled, tools.allowed,
// tools.permissions.*).
type Config struct {
	RequireApproval bool
	YOLO            bool
	AllowedTools    []string
	DisabledTools   []string
	DefaultAction   core.PolicyDecision // ALLOW lets calls through when RequireApproval is true; any other value (DENY, the default) leaves them at ASK_USER
}

// Engine decides ALLOW/DENY/ASK_USER for a tool call. It also remembers
// "always allow" decisions made via ProceedAlways so the same call doesn't
// prompt twice in one session.
type Engine struct {
	mu sync.RWMutex

	requireApproval bool
	yolo            bool
	allowed         map[string]bool
	disabled        map[string]bool
	defaultAction   core.PolicyDecision
	sessionAllowed  map[string]bool // tool names approved via ProceedAlways this session
}

// New builds an Engine from cfg. DefaultAction defaults to DENY.
func New(cfg Config) *Engine {
	allowed := make(map[string]bool, len(cfg.AllowedTools))
	for _, t := range cfg.AllowedTools {
		allowed[t] = true
	}
	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, t := range cfg.DisabledTools {
		disabled[t] = true
	}
	def := cfg.DefaultAction
	if def == "" {
		def = core.PolicyDeny
	}
	return &Engine{
		requireApproval: cfg.RequireApproval,
		yolo:            cfg.YOLO,
		allowed:         allowed,
		disabled:        disabled,
		defaultAction:   def,
		sessionAllowed:  make(map[string]bool),
	}
}

// Decide returns ALLOW, DENY, or ASK_USER for the named tool call.
//
// Precedence: YOLO bypasses everything. The disabled (blacklist) list
// always wins over the allowed (whitelist) list. A session-level
// ProceedAlways grant (see RememberAlways) wins next. Otherwise, if
// approval isn't required the call is allowed; if it is, the tool is sent
// to ASK_USER unless the configured default action says otherwise.
func (e *Engine) Decide(toolName string) core.PolicyDecision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.yolo {
		return core.PolicyAllow
	}
	if e.disabled[toolName] {
		return core.PolicyDeny
	}
	if e.allowed[toolName] {
		return core.PolicyAllow
	}
	if e.sessionAllowed[toolName] {
		return core.PolicyAllow
	}
	if !e.requireApproval {
		return core.PolicyAllow
	}
	if e.defaultAction == core.PolicyAllow {
		return core.PolicyAllow
	}
	return core.PolicyAskUser
}

// RememberAlways records a ProceedAlways confirmation outcome so future
// calls to the same tool in this session resolve to ALLOW without asking.
func (e *Engine) RememberAlways(toolName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionAllowed[toolName] = true
}

// IsYOLO reports whether the engine is in YOLO (bypass-all) mode.
func (e *Engine) IsYOLO() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.yolo
}

// IsDisabled reports whether toolName is on the blacklist.
func (e *Engine) IsDisabled(toolName string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.disabled[toolName]
}
