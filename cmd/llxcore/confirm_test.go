// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestPromptApproval_AcceptsYAndYes(t *testing.T) {
	for _, answer := range []string{"y\n", "Y\n", "yes\n", "YES\n"} {
		reader := bufio.NewReader(strings.NewReader(answer))
		assert.True(t, promptApproval(reader, core.ToolCallRequest{Name: "shell_execute"}, ""))
	}
}

func TestPromptApproval_RejectsAnythingElse(t *testing.T) {
	for _, answer := range []string{"n\n", "\n", "nope\n"} {
		reader := bufio.NewReader(strings.NewReader(answer))
		assert.False(t, promptApproval(reader, core.ToolCallRequest{Name: "shell_execute"}, "srv"))
	}
}

func TestPromptBucketAuth_AcceptsY(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("y\n"))
	assert.True(t, promptBucketAuth(reader, "anthropic", "bucket-1", 0, 2))
}

func TestPromptBucketAuth_RejectsBlank(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("\n"))
	assert.False(t, promptBucketAuth(reader, "anthropic", "bucket-1", 1, 2))
}
