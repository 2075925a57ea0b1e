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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
)

// runInteractiveApprover subscribes to bus and answers every
// TOOL_CONFIRMATION_REQUEST by asking the operator on stdin, until ctx is
// cancelled. It is the CLI's stand-in for a richer front-end's HITL surface:
// one process, one session, one terminal.
func runInteractiveApprover(ctx context.Context, log *zap.Logger, bus *confirmation.Bus) {
	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		log.Warn("confirm: failed to subscribe to confirmation bus", zap.Error(err))
		return
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch msg.Type {
			case confirmation.ToolConfirmationRequest:
				confirmed := promptApproval(reader, msg.ToolCall, msg.ServerName)
				outcome := core.Cancel
				if confirmed {
					outcome = core.ProceedOnce
				}
				bus.Respond(msg.CorrelationID, outcome, nil, confirmed)

			case confirmation.BucketAuthRequest:
				confirmed := promptBucketAuth(reader, msg.Provider, msg.Bucket, msg.BucketIndex, msg.TotalBuckets)
				bus.RespondBucketAuth(msg.CorrelationID, confirmed)
			}
		}
	}
}

func promptApproval(reader *bufio.Reader, call core.ToolCallRequest, serverName string) bool {
	fmt.Fprintf(os.Stderr, "\nTool call awaiting approval: %s", call.Name)
	if serverName != "" {
		fmt.Fprintf(os.Stderr, " (via %s)", serverName)
	}
	fmt.Fprintf(os.Stderr, "\n  args: %v\nProceed? [y/N] ", call.Args)

	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// promptBucketAuth asks the operator to complete an out-of-band OAuth
// re-login for a bucket sub-profile whose refresh token stopped working,
// and confirm once done.
func promptBucketAuth(reader *bufio.Reader, provider, bucket string, index, total int) bool {
	fmt.Fprintf(os.Stderr, "\nBucket %q (sub-profile %d/%d, provider %s) needs re-authentication.\n", bucket, index+1, total, provider)
	fmt.Fprint(os.Stderr, "Complete the login out-of-band, then confirm. Done? [y/N] ")

	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
