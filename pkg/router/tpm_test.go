// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTPMRing_AddAndObserve(t *testing.T) {
	ring := &tpmRing{}
	base := time.Unix(1_700_000_000, 0)

	ring.Add(100, base)
	ring.Add(50, base.Add(time.Minute))

	observed := ring.ObservedTPM(base.Add(time.Minute))
	assert.InDelta(t, 75.0, observed, 0.01) // (100+50)/2 minutes
}

func TestTPMRing_EvictsStaleMoreThan5MinutesOld(t *testing.T) {
	ring := &tpmRing{}
	base := time.Unix(1_700_000_000, 0)

	ring.Add(1000, base)
	later := base.Add(10 * time.Minute)
	ring.Add(10, later)

	observed := ring.ObservedTPM(later)
	assert.Less(t, observed, 20.0) // the stale 1000-token bucket must not count
}

func TestTPMRing_EmptyRingObservesZero(t *testing.T) {
	ring := &tpmRing{}
	assert.Equal(t, 0.0, ring.ObservedTPM(time.Now()))
}
