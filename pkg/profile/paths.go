// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package profile loads and saves provider profiles from
// <home>/.llxprt/profiles/<name>.json and watches the directory for
// out-of-band edits.
package profile

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the profile directory.
//
// Priority:
//  1. LLXCORE_HOME environment variable (if set and non-empty)
//  2. ~/.llxprt (default)
//
// The returned path is absolute except when the home directory cannot be
// determined, in which case it is relative to the working directory; tilde
// in LLXCORE_HOME is expanded.
func Dir() string {
	if home := os.Getenv("LLXCORE_HOME"); home != "" {
		return filepath.Join(expandPath(home), "profiles")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".llxprt", "profiles")
	}
	return filepath.Join(homeDir, ".llxprt", "profiles")
}

// PathFor returns the on-disk path for a named profile.
func PathFor(name string) string {
	return filepath.Join(Dir(), name+".json")
}

func expandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err == nil {
			return abs
		}
	}
	return path
}
