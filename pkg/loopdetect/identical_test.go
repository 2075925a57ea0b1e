// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package loopdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdenticalToolCallDetector_TripsAtThreshold(t *testing.T) {
	d := NewIdenticalToolCallDetector(3)
	args := map[string]any{"path": "a.go"}

	assert.False(t, d.Observe("read_file", args))
	assert.False(t, d.Observe("read_file", args))
	assert.True(t, d.Observe("read_file", args))
}

func TestIdenticalToolCallDetector_ResetsOnDifferentCall(t *testing.T) {
	d := NewIdenticalToolCallDetector(3)
	assert.False(t, d.Observe("read_file", map[string]any{"path": "a.go"}))
	assert.False(t, d.Observe("read_file", map[string]any{"path": "a.go"}))
	assert.False(t, d.Observe("read_file", map[string]any{"path": "b.go"}))
	assert.False(t, d.Observe("read_file", map[string]any{"path": "b.go"}))
}

func TestIdenticalToolCallDetector_ArgOrderDoesNotDefeatDetection(t *testing.T) {
	d := NewIdenticalToolCallDetector(2)
	assert.False(t, d.Observe("search", map[string]any{"q": "foo", "limit": 10.0}))
	assert.True(t, d.Observe("search", map[string]any{"limit": 10.0, "q": "foo"}))
}

func TestIdenticalToolCallDetector_DefaultThreshold(t *testing.T) {
	d := NewIdenticalToolCallDetector(0)
	assert.Equal(t, DefaultIdenticalToolCallThreshold, d.threshold)
}

func TestIdenticalToolCallDetector_Reset(t *testing.T) {
	d := NewIdenticalToolCallDetector(2)
	assert.False(t, d.Observe("x", nil))
	d.Reset()
	assert.False(t, d.Observe("x", nil))
}
