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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/internal/appconfig"
)

var (
	cfgFile string
	cfg     *appconfig.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "llxcore",
	Short:   "llxcore — provider-orchestration core for a multi-provider coding assistant",
	Long:    `llxcore drives one prompt through the provider router, tool scheduler, and loop detector that sit behind a coding-assistant's model turn.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <profile dir>/llxcore.yaml)")
	rootCmd.PersistentFlags().String("profile-dir", "", "directory holding profile JSON files (default: ~/.llxprt/profiles)")
	rootCmd.PersistentFlags().String("recorder-dir", "", "directory for session journal files")
	rootCmd.PersistentFlags().Bool("yolo", false, "bypass all tool permission prompts")
	rootCmd.PersistentFlags().Bool("require-approval", true, "require operator approval before executing tools")
	rootCmd.PersistentFlags().Int("identical-tool-call-threshold", 50, "consecutive identical tool calls before tripping the loop detector")
	rootCmd.PersistentFlags().Int("max-turns-per-prompt", 0, "max model turns per prompt before tripping the loop detector (0 disables)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("profile_dir", rootCmd.PersistentFlags().Lookup("profile-dir"))
	_ = viper.BindPFlag("recorder_dir", rootCmd.PersistentFlags().Lookup("recorder-dir"))
	_ = viper.BindPFlag("policy.yolo", rootCmd.PersistentFlags().Lookup("yolo"))
	_ = viper.BindPFlag("policy.require_approval", rootCmd.PersistentFlags().Lookup("require-approval"))
	_ = viper.BindPFlag("loop.identical_tool_call_threshold", rootCmd.PersistentFlags().Lookup("identical-tool-call-threshold"))
	_ = viper.BindPFlag("loop.max_turns_per_prompt", rootCmd.PersistentFlags().Lookup("max-turns-per-prompt"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	var err error
	cfg, err = appconfig.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log = buildLogger(cfg.Log.Level, cfg.Log.Format)
}
