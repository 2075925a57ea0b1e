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
package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// shellExecutor implements toolcall.Executor for the one builtin tool this
// CLI recognizes: "shell_execute", running its "command" argument through
// the platform shell with a bounded timeout and output size.
type shellExecutor struct {
	timeout   time.Duration
	maxOutput int
}

const defaultShellTimeout = 60 * time.Second
const defaultMaxOutputBytes = 1 << 20 // 1MB

func newShellExecutor() *shellExecutor {
	return &shellExecutor{timeout: defaultShellTimeout, maxOutput: defaultMaxOutputBytes}
}

func (e *shellExecutor) Execute(ctx context.Context, req core.ToolCallRequest) (string, error) {
	if req.Name != "shell_execute" {
		return "", fmt.Errorf("shellExecutor: unsupported tool %q", req.Name)
	}
	command, _ := req.Args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("shellExecutor: missing \"command\" argument")
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()

	output := out.Bytes()
	if len(output) > e.maxOutput {
		output = output[:e.maxOutput]
	}
	if runErr != nil {
		return string(output), fmt.Errorf("shellExecutor: %s: %w", command, runErr)
	}
	return string(output), nil
}
