// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package loopdetect

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// TripReason identifies which detector ended a turn.
type TripReason string

const (
	TripNone                      TripReason = ""
	TripConsecutiveIdenticalCalls TripReason = "CONSECUTIVE_IDENTICAL_TOOL_CALLS"
	TripContentChanting           TripReason = "CHANTING_IDENTICAL_SENTENCES"
	TripTurnOverflow              TripReason = "MAX_TURNS_EXCEEDED"
)

var tripsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "llxcore_loopdetect_trips_total",
	Help: "Total loop-detector trips by reason.",
}, []string{"reason"})

func init() {
	prometheus.MustRegister(tripsTotal)
}

// Config configures the three independently tunable detectors.
type Config struct {
	IdenticalToolCallThreshold int // <= 0 uses DefaultIdenticalToolCallThreshold
	MaxTurnsPerPrompt          int // <= 0 disables the turn-overflow detector
}

// Detector composes the identical-tool-call, content-chanting, and
// turn-overflow detectors for a single session, observing a ProviderDriver's
// event stream and deciding when a runaway turn should be terminated.
type Detector struct {
	log *zap.Logger

	identical *IdenticalToolCallDetector
	chanting  *ContentChantingDetector
	turns     *TurnOverflowDetector
}

// New builds a Detector from Config.
func New(log *zap.Logger, cfg Config) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		log:       log,
		identical: NewIdenticalToolCallDetector(cfg.IdenticalToolCallThreshold),
		chanting:  NewContentChantingDetector(),
		turns:     NewTurnOverflowDetector(cfg.MaxTurnsPerPrompt),
	}
}

// ObserveToolCall folds in one tool call and reports a trip if the
// consecutive-identical-call threshold is reached.
func (d *Detector) ObserveToolCall(name string, args map[string]any) TripReason {
	if d.identical.Observe(name, args) {
		tripsTotal.WithLabelValues(string(TripConsecutiveIdenticalCalls)).Inc()
		d.log.Warn("loopdetect: consecutive identical tool calls", zap.String("tool", name))
		return TripConsecutiveIdenticalCalls
	}
	return TripNone
}

// ObserveContent folds in one text delta and reports a trip if a chant loop
// is detected.
func (d *Detector) ObserveContent(textDelta string) TripReason {
	if d.chanting.Observe(textDelta) {
		tripsTotal.WithLabelValues(string(TripContentChanting)).Inc()
		d.log.Warn("loopdetect: content chanting detected")
		return TripContentChanting
	}
	return TripNone
}

// TurnStarted records a new turn and reports a trip if maxTurnsPerPrompt is
// exceeded.
func (d *Detector) TurnStarted() TripReason {
	if d.turns.TurnStarted() {
		tripsTotal.WithLabelValues(string(TripTurnOverflow)).Inc()
		d.log.Warn("loopdetect: turn overflow", zap.Int("turns", d.turns.Count()))
		return TripTurnOverflow
	}
	return TripNone
}

// ResetTurn clears the identical-call and content-chanting detectors at a
// turn boundary; turn-overflow persists across the whole prompt.
func (d *Detector) ResetTurn() {
	d.identical.Reset()
	d.chanting.resetTracking()
}

// ResetPrompt clears all accumulated state, including the turn counter, for
// a new prompt.
func (d *Detector) ResetPrompt() {
	d.ResetTurn()
	d.turns.Reset()
}
