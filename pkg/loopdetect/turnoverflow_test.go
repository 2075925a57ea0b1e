// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package loopdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnOverflowDetector_TripsPastMax(t *testing.T) {
	d := NewTurnOverflowDetector(3)
	assert.False(t, d.TurnStarted())
	assert.False(t, d.TurnStarted())
	assert.False(t, d.TurnStarted())
	assert.True(t, d.TurnStarted())
}

func TestTurnOverflowDetector_DisabledWhenMaxIsZero(t *testing.T) {
	d := NewTurnOverflowDetector(0)
	for i := 0; i < 1000; i++ {
		assert.False(t, d.TurnStarted())
	}
}

func TestTurnOverflowDetector_ResetClearsCount(t *testing.T) {
	d := NewTurnOverflowDetector(1)
	assert.False(t, d.TurnStarted())
	assert.True(t, d.TurnStarted())
	d.Reset()
	assert.Equal(t, 0, d.Count())
	assert.False(t, d.TurnStarted())
}
