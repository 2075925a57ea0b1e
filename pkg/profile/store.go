// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/core"
)

const currentVersion = 1

// Load reads and validates a named profile from disk.
func Load(name string) (*core.Profile, error) {
	path := PathFor(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("Profile '%s' not found", name)
		}
		return nil, fmt.Errorf("Profile '%s' is corrupted", name)
	}

	var p core.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("Profile '%s' is corrupted", name)
	}

	if p.Version == 0 {
		return nil, fmt.Errorf("Profile '%s' is invalid: missing required fields", name)
	}
	if p.Version != currentVersion {
		return nil, fmt.Errorf("unsupported profile version")
	}
	if p.Provider == "" || p.Model == "" || p.ModelParams == nil || p.EphemeralSettings == nil {
		return nil, fmt.Errorf("Profile '%s' is invalid: missing required fields", name)
	}

	return &p, nil
}

// Save writes a profile as pretty-printed two-space-indented UTF-8 JSON.
// saveProfile ∘ loadProfile == identity for any well-formed profile.
func Save(name string, p *core.Profile) error {
	if p.Version == 0 {
		p.Version = currentVersion
	}
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile %q: %w", name, err)
	}
	data = append(data, '\n')
	return os.WriteFile(PathFor(name), data, 0o644)
}

// Watcher notifies on out-of-band edits to the profile directory, mirroring
// the hot-reload pattern the agent config loader uses for YAML bundles.
type Watcher struct {
	mu      sync.Mutex
	w       *fsnotify.Watcher
	logger  *zap.Logger
	onWrite func(name string)
	done    chan struct{}
}

// NewWatcher starts watching Dir() for writes. onWrite is invoked with the
// profile name (without extension) whenever a .json file is created or
// written. logger may be nil.
func NewWatcher(logger *zap.Logger, onWrite func(name string)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting profile watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{w: fw, logger: logger, onWrite: onWrite, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(ev.Name) != ".json" {
				continue
			}
			name := filepath.Base(ev.Name)
			name = name[:len(name)-len(".json")]
			if w.onWrite != nil {
				w.onWrite(name)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.logger.Warn("profile watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.w.Close()
}
