// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("LLXCORE_HOME", t.TempDir())

	p := &core.Profile{
		Version:           1,
		Provider:          "anthropic",
		Model:             "claude-sonnet-4",
		ModelParams:       map[string]any{"max_tokens": float64(4096)},
		EphemeralSettings: map[string]any{"tools.disabled": []any{"shell_execute"}},
	}

	require.NoError(t, Save("work", p))

	got, err := Load("work")
	require.NoError(t, err)
	require.Equal(t, p.Version, got.Version)
	require.Equal(t, p.Provider, got.Provider)
	require.Equal(t, p.Model, got.Model)
	require.Equal(t, p.ModelParams, got.ModelParams)
	require.Equal(t, p.EphemeralSettings, got.EphemeralSettings)
}

func TestLoadNotFound(t *testing.T) {
	t.Setenv("LLXCORE_HOME", t.TempDir())

	_, err := Load("missing")
	require.EqualError(t, err, "Profile 'missing' not found")
}

func TestLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LLXCORE_HOME", dir)

	require.NoError(t, Save("placeholder", &core.Profile{
		Version: 1, Provider: "x", Model: "y",
		ModelParams: map[string]any{}, EphemeralSettings: map[string]any{},
	}))
	require.NoError(t, writeRaw(t, "broken", "{not json"))

	_, err := Load("broken")
	require.EqualError(t, err, "Profile 'broken' is corrupted")
}

func TestLoadUnsupportedVersion(t *testing.T) {
	t.Setenv("LLXCORE_HOME", t.TempDir())
	require.NoError(t, writeRaw(t, "future", `{"version":2,"provider":"x","model":"y","modelParams":{},"ephemeralSettings":{}}`))

	_, err := Load("future")
	require.EqualError(t, err, "unsupported profile version")
}

func TestLoadMissingFields(t *testing.T) {
	t.Setenv("LLXCORE_HOME", t.TempDir())
	require.NoError(t, writeRaw(t, "partial", `{"version":1,"provider":"x"}`))

	_, err := Load("partial")
	require.EqualError(t, err, "Profile 'partial' is invalid: missing required fields")
}

func writeRaw(t *testing.T, name, content string) error {
	t.Helper()
	return writeFile(PathFor(name), content)
}
