// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package loopdetect

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	chunkWindow    = 50
	contentCap     = 5000
	recurThreshold = 50
	maxAvgSpacing  = 250
)

// ContentChantingDetector slides a fixed-size window over streamed content
// text and flags a loop when the same chunk recurs densely. Markdown
// structural elements (fences, tables, lists, headings, blockquotes,
// dividers) reset tracking to suppress false positives on legitimately
// repetitive formatting; analysis is paused entirely inside fenced code
// blocks.
type ContentChantingDetector struct {
	buf       []byte
	positions map[uint64][]int
	inFence   bool
}

// NewContentChantingDetector returns an empty detector.
func NewContentChantingDetector() *ContentChantingDetector {
	return &ContentChantingDetector{
		positions: make(map[uint64][]int),
	}
}

// Observe folds in one text delta and returns true if a chant loop is
// detected in the accumulated content so far.
func (d *ContentChantingDetector) Observe(textDelta string) bool {
	for _, line := range splitKeepEmpty(textDelta) {
		if isFenceMarker(line) {
			d.inFence = !d.inFence
			d.resetTracking()
			continue
		}
		if d.inFence {
			continue
		}
		if isStructuralReset(line) {
			d.resetTracking()
		}
	}

	if d.inFence {
		return false
	}

	d.buf = append(d.buf, []byte(textDelta)...)
	if len(d.buf) > contentCap {
		d.truncateAndShift()
	}

	return d.scanForChant()
}

func (d *ContentChantingDetector) resetTracking() {
	d.positions = make(map[uint64][]int)
	d.buf = d.buf[:0]
}

// truncateAndShift drops content past the cap from the front, shifting all
// stored chunk-hash positions so they remain valid indices into the
// shortened buffer.
func (d *ContentChantingDetector) truncateAndShift() {
	drop := len(d.buf) - contentCap
	d.buf = d.buf[drop:]
	for h, positions := range d.positions {
		shifted := positions[:0]
		for _, p := range positions {
			np := p - drop
			if np >= 0 {
				shifted = append(shifted, np)
			}
		}
		if len(shifted) == 0 {
			delete(d.positions, h)
		} else {
			d.positions[h] = shifted
		}
	}
}

func (d *ContentChantingDetector) scanForChant() bool {
	if len(d.buf) < chunkWindow {
		return false
	}
	// Only the newest window needs indexing; earlier windows were indexed on
	// prior calls.
	start := len(d.buf) - chunkWindow
	h := xxhash.Sum64(d.buf[start:])
	d.positions[h] = append(d.positions[h], start)

	positions := d.positions[h]
	if len(positions) < recurThreshold {
		return false
	}
	span := positions[len(positions)-1] - positions[0]
	avgSpacing := float64(span) / float64(len(positions)-1)
	return avgSpacing <= maxAvgSpacing
}

func splitKeepEmpty(s string) []string {
	return strings.Split(s, "\n")
}

func isFenceMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// isStructuralReset reports whether line is a markdown table row, list item,
// heading, blockquote, or horizontal-rule divider — any of which commonly
// repeats legitimately (e.g. a long table) and would otherwise false-positive.
func isStructuralReset(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	switch {
	case strings.HasPrefix(trimmed, "|"):
		return true // table row
	case strings.HasPrefix(trimmed, "#"):
		return true // heading
	case strings.HasPrefix(trimmed, ">"):
		return true // blockquote
	case strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "+"):
		return true // list item or divider (---, ***, +++)
	case strings.Trim(trimmed, "-") == "" || strings.Trim(trimmed, "*") == "" || strings.Trim(trimmed, "_") == "":
		return true // divider
	default:
		return false
	}
}
