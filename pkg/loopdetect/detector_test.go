// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package loopdetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDetector_ObserveToolCallTripsConsecutiveIdentical(t *testing.T) {
	d := New(zaptest.NewLogger(t), Config{IdenticalToolCallThreshold: 2})
	assert.Equal(t, TripNone, d.ObserveToolCall("grep", map[string]any{"q": "x"}))
	assert.Equal(t, TripConsecutiveIdenticalCalls, d.ObserveToolCall("grep", map[string]any{"q": "x"}))
}

func TestDetector_ObserveContentTripsChanting(t *testing.T) {
	d := New(zaptest.NewLogger(t), Config{})
	chunk := strings.Repeat("q", chunkWindow)
	tripped := false
	for i := 0; i < recurThreshold+2; i++ {
		if d.ObserveContent(chunk) == TripContentChanting {
			tripped = true
			break
		}
	}
	assert.True(t, tripped)
}

func TestDetector_TurnStartedTripsOverflow(t *testing.T) {
	d := New(zaptest.NewLogger(t), Config{MaxTurnsPerPrompt: 1})
	assert.Equal(t, TripNone, d.TurnStarted())
	assert.Equal(t, TripTurnOverflow, d.TurnStarted())
}

func TestDetector_ResetTurnClearsIdenticalAndChantingNotTurns(t *testing.T) {
	d := New(zaptest.NewLogger(t), Config{IdenticalToolCallThreshold: 2, MaxTurnsPerPrompt: 5})
	assert.Equal(t, TripNone, d.ObserveToolCall("x", nil))
	assert.Equal(t, TripConsecutiveIdenticalCalls, d.ObserveToolCall("x", nil))
	d.ResetTurn()
	assert.Equal(t, TripNone, d.ObserveToolCall("x", nil))

	d.TurnStarted()
	d.TurnStarted()
	d.ResetTurn()
	assert.Equal(t, 2, d.turns.Count(), "ResetTurn must not clear the turn-overflow counter")
}

func TestDetector_ResetPromptClearsEverything(t *testing.T) {
	d := New(zaptest.NewLogger(t), Config{MaxTurnsPerPrompt: 1})
	d.TurnStarted()
	d.ResetPrompt()
	assert.Equal(t, 0, d.turns.Count())
}
