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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cconf "github.com/teradata-labs/llxcore/pkg/confirmation"
	"github.com/teradata-labs/llxcore/pkg/core"
	"github.com/teradata-labs/llxcore/pkg/llm/factory"
	"github.com/teradata-labs/llxcore/pkg/loopdetect"
	"github.com/teradata-labs/llxcore/pkg/normalizer"
	"github.com/teradata-labs/llxcore/pkg/policy"
	"github.com/teradata-labs/llxcore/pkg/profile"
	"github.com/teradata-labs/llxcore/pkg/router"
	"github.com/teradata-labs/llxcore/pkg/runtime"
	"github.com/teradata-labs/llxcore/pkg/toolcall"
)

var generateProfileName string

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run one prompt through a profile's provider and print the assistant turn",
	Long: `generate normalizes the prompt, drives it through the profile's
ProviderDriver (or, for a loadbalancer profile, its LoadBalancer), assembles
and executes any tool calls it triggers, and prints the resulting assistant
text to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateProfileName, "profile", "default", "profile name to load")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := profile.Load(generateProfileName)
	if err != nil {
		return fmt.Errorf("loading profile %q: %w", generateProfileName, err)
	}

	bus := cconf.New(log, 0)
	defer bus.Close()

	approveCtx, cancelApprove := context.WithCancel(ctx)
	defer cancelApprove()
	if !cfg.Policy.YOLO {
		go runInteractiveApprover(approveCtx, log, bus)
	}

	r := router.New(log,
		factory.DriverFor,
		factory.CredentialsForProfile,
		factory.CredentialsForSubProfile,
		secretResolver,
		subProfileResolver,
		bus,
	)

	defaultAction := core.PolicyDeny
	if strings.EqualFold(cfg.Policy.DefaultAction, "ALLOW") {
		defaultAction = core.PolicyAllow
	}

	rc := runtime.New(runtime.Config{
		Log:    log,
		Router: r,
		Policy: policy.New(policy.Config{
			RequireApproval: cfg.Policy.RequireApproval,
			YOLO:            cfg.Policy.YOLO,
			AllowedTools:    cfg.Policy.AllowedTools,
			DisabledTools:   cfg.Policy.DisabledTools,
			DefaultAction:   defaultAction,
		}),
		Bus:      bus,
		Executor: newShellExecutor(),
		Observer: toolcall.NoopObserver{},
		LoopDetect: loopdetect.Config{
			IdenticalToolCallThreshold: cfg.Loop.IdenticalToolCallThreshold,
			MaxTurnsPerPrompt:          cfg.Loop.MaxTurnsPerPrompt,
		},
		RecorderDir: cfg.RecorderDir,
		SessionID:   fmt.Sprintf("cli-%d", os.Getpid()),
	})
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn("closing session journal", zap.Error(err))
		}
	}()

	req := normalizer.Request{
		Message:  core.Content{Speaker: core.SpeakerHuman, Blocks: []core.Block{core.TextBlock(strings.Join(args, " "))}},
		Provider: p.Provider,
	}

	result, err := rc.RunTurn(ctx, generateProfileName, p, req)
	if err != nil {
		return fmt.Errorf("running turn: %w", err)
	}

	fmt.Println(result.Text)
	if result.ToolCalls != nil {
		for _, call := range result.ToolCalls.Calls {
			fmt.Fprintf(os.Stderr, "[%s] %s -> %s\n", call.State, call.Request.Name, call.Result)
		}
	}
	if path := rc.RecorderFilePath(); path != "" {
		fmt.Fprintf(os.Stderr, "session journal: %s\n", path)
	}
	return nil
}

// secretResolver reads a profile's OAuth token from <PROVIDER>_OAUTH_TOKEN
// or, when that is unset, its API key from <PROVIDER>_API_KEY, since the
// core never owns key material beyond a single call and the CLI has no
// keyring integration of its own.
func secretResolver(p *core.Profile) (string, bool) {
	envVar := strings.ToUpper(p.Provider) + "_API_KEY"
	if token := os.Getenv(strings.ToUpper(p.Provider) + "_OAUTH_TOKEN"); token != "" {
		return token, true
	}
	return os.Getenv(envVar), false
}

// subProfileResolver loads each named sub-profile for a loadbalancer
// profile from the same profile store a standard profile comes from,
// treating the name as a profile file whose [provider/model/modelParams]
// become one SubProfile entry.
func subProfileResolver(names []string) ([]core.SubProfile, error) {
	subs := make([]core.SubProfile, 0, len(names))
	for _, name := range names {
		p, err := profile.Load(name)
		if err != nil {
			return nil, fmt.Errorf("loading sub-profile %q: %w", name, err)
		}
		secret, oauth := secretResolver(p)
		sp := core.SubProfile{
			Name:         name,
			ProviderName: p.Provider,
			ModelID:      p.Model,
			ModelParams:  p.ModelParams,
		}
		if oauth {
			sp.RefreshToken = secret
		} else {
			sp.AuthToken = secret
		}
		subs = append(subs, sp)
	}
	return subs, nil
}
