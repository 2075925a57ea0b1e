// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		tool string
		want core.PolicyDecision
	}{
		{
			name: "yolo bypasses everything",
			cfg:  Config{YOLO: true, DisabledTools: []string{"shell"}, RequireApproval: true},
			tool: "shell",
			want: core.PolicyAllow,
		},
		{
			name: "disabled wins over allowed",
			cfg:  Config{AllowedTools: []string{"shell"}, DisabledTools: []string{"shell"}},
			tool: "shell",
			want: core.PolicyDeny,
		},
		{
			name: "allowed bypasses approval requirement",
			cfg:  Config{AllowedTools: []string{"read_file"}, RequireApproval: true},
			tool: "read_file",
			want: core.PolicyAllow,
		},
		{
			name: "no approval required allows by default",
			cfg:  Config{RequireApproval: false},
			tool: "write_file",
			want: core.PolicyAllow,
		},
		{
			name: "approval required asks user by default",
			cfg:  Config{RequireApproval: true},
			tool: "write_file",
			want: core.PolicyAskUser,
		},
		{
			name: "approval required but default action allow",
			cfg:  Config{RequireApproval: true, DefaultAction: core.PolicyAllow},
			tool: "write_file",
			want: core.PolicyAllow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := New(tc.cfg)
			assert.Equal(t, tc.want, e.Decide(tc.tool))
		})
	}
}

func TestRememberAlways(t *testing.T) {
	e := New(Config{RequireApproval: true})
	assert.Equal(t, core.PolicyAskUser, e.Decide("shell"))

	e.RememberAlways("shell")
	assert.Equal(t, core.PolicyAllow, e.Decide("shell"))

	// unrelated tool still asks
	assert.Equal(t, core.PolicyAskUser, e.Decide("write_file"))
}

func TestIsYOLOAndIsDisabled(t *testing.T) {
	e := New(Config{YOLO: true, DisabledTools: []string{"shell"}})
	assert.True(t, e.IsYOLO())
	assert.True(t, e.IsDisabled("shell"))
	assert.False(t, e.IsDisabled("read_file"))
}

func TestDefaultActionDefaultsToDeny(t *testing.T) {
	e := New(Config{})
	assert.Equal(t, core.PolicyDeny, e.defaultAction)
}
