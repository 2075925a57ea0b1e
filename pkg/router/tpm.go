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

// Package router implements the ProviderRouter and its LoadBalancer: the
// sub-profile selection policies, TPM accounting, and retry/failover
// orchestration described for a loadbalancer-type profile.
package router

import "time"

// ringSize is fixed at 5 per spec: a minute-aligned TPM bucket is kept for
// the preceding 5 minutes only.
const ringSize = 5

// tpmRing is a minute-aligned ring of token counts for one sub-profile.
// Buckets older than 5 minutes are evicted on every read.
type tpmRing struct {
	buckets [ringSize]tpmBucket
}

type tpmBucket struct {
	minuteEpoch int64
	tokens      int
	set         bool
}

// nowFunc is overridable in tests for deterministic minute boundaries.
var nowFunc = time.Now

func minuteEpoch(t time.Time) int64 {
	return t.Unix() / 60
}

// Add attributes tokens to the current minute's bucket, evicting any bucket
// more than 5 minutes stale.
func (r *tpmRing) Add(tokens int, at time.Time) {
	epoch := minuteEpoch(at)
	idx := int(epoch % ringSize)
	b := &r.buckets[idx]
	if !b.set || b.minuteEpoch != epoch {
		*b = tpmBucket{minuteEpoch: epoch, tokens: 0, set: true}
	}
	if tokens > 0 {
		b.tokens += tokens
	}
}

// ObservedTPM returns Σ(buckets in the last 5 minutes) / max(1, elapsedMinutes).
func (r *tpmRing) ObservedTPM(at time.Time) float64 {
	nowEpoch := minuteEpoch(at)
	total := 0
	oldest := nowEpoch
	any := false
	for _, b := range r.buckets {
		if !b.set {
			continue
		}
		if nowEpoch-b.minuteEpoch >= ringSize {
			continue // stale, evicted on read
		}
		total += b.tokens
		if b.minuteEpoch < oldest {
			oldest = b.minuteEpoch
		}
		any = true
	}
	if !any {
		return 0
	}
	elapsed := nowEpoch - oldest + 1
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(total) / float64(elapsed)
}
