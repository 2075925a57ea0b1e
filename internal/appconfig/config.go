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

// Package appconfig loads cmd/llxcore's process-wide settings: the tool
// policy defaults, the loop detector's thresholds, and where the session
// journal and profile store live. Priority is CLI flags > env vars > config
// file > defaults, viper's own resolution order.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teradata-labs/llxcore/pkg/profile"
)

// DefaultConfigFileName is the base name viper searches for (llxcore.yaml).
const DefaultConfigFileName = "llxcore"

// Config holds the settings cmd/llxcore binds from flags, env vars, and an
// optional config file.
type Config struct {
	ProfileDir  string `mapstructure:"profile_dir"`
	RecorderDir string `mapstructure:"recorder_dir"`

	Policy PolicyConfig `mapstructure:"policy"`
	Loop   LoopConfig   `mapstructure:"loop"`
	Log    LogConfig    `mapstructure:"log"`
}

// PolicyConfig mirrors pkg/policy.Config's mapstructure-friendly shape.
type PolicyConfig struct {
	RequireApproval bool     `mapstructure:"require_approval"`
	YOLO            bool     `mapstructure:"yolo"`
	AllowedTools    []string `mapstructure:"allowed_tools"`
	DisabledTools   []string `mapstructure:"disabled_tools"`
	DefaultAction   string   `mapstructure:"default_action"` // "ALLOW" or "DENY"
}

// LoopConfig mirrors pkg/loopdetect.Config.
type LoopConfig struct {
	IdenticalToolCallThreshold int `mapstructure:"identical_tool_call_threshold"`
	MaxTurnsPerPrompt          int `mapstructure:"max_turns_per_prompt"`
}

// LogConfig controls the process zap.Logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// Load reads cfgFile (if non-empty) or searches the working directory and
// profile.Dir() for llxcore.yaml, applies LLXCORE_-prefixed env var
// overrides, and unmarshals the result into a Config seeded with defaults.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(profile.Dir())
		viper.AddConfigPath(".")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("appconfig: reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetEnvPrefix("LLXCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("appconfig: unmarshalling config: %w", err)
	}

	if cfg.ProfileDir != "" {
		// profile.Dir() always appends "profiles" to LLXCORE_HOME, so an
		// explicit override points LLXCORE_HOME at its parent.
		_ = os.Setenv("LLXCORE_HOME", filepath.Dir(cfg.ProfileDir))
	} else {
		cfg.ProfileDir = profile.Dir()
	}
	if cfg.RecorderDir == "" {
		cfg.RecorderDir = filepath.Join(cfg.ProfileDir, "..", "sessions")
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("recorder_dir", "")
	viper.SetDefault("profile_dir", "")

	viper.SetDefault("policy.require_approval", true)
	viper.SetDefault("policy.yolo", false)
	viper.SetDefault("policy.default_action", "DENY")

	viper.SetDefault("loop.identical_tool_call_threshold", 50)
	viper.SetDefault("loop.max_turns_per_prompt", 0)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}
