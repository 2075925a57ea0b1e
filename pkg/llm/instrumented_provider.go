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

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teradata-labs/llxcore/pkg/core"
)

var (
	callsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llxcore_llm_calls_total",
		Help: "Total ProviderDriver.Generate calls.",
	}, []string{"provider", "model"})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llxcore_llm_errors_total",
		Help: "Total ProviderDriver.Generate calls that ended in an error event.",
	}, []string{"provider", "model", "error_type"})

	ttftSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llxcore_llm_ttft_seconds",
		Help:    "Time to first content/tool-call-fragment event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "model"})

	tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llxcore_llm_tokens_total",
		Help: "Total tokens reported by usage events.",
	}, []string{"provider", "model", "kind"})
)

func init() {
	prometheus.MustRegister(callsTotal, errorsTotal, ttftSeconds, tokensTotal)
}

// InstrumentedDriver wraps any Driver with Prometheus instrumentation. It is
// transparent: the driver itself never depends on the metrics package, only
// this optional decorator does, preserving the teacher's transparent-wrapper
// idiom without tying the hot path to a tracer abstraction.
type InstrumentedDriver struct {
	inner Driver
}

// NewInstrumentedDriver wraps inner with call/latency/error/token metrics.
func NewInstrumentedDriver(inner Driver) *InstrumentedDriver {
	return &InstrumentedDriver{inner: inner}
}

func (d *InstrumentedDriver) Name() string { return d.inner.Name() }

// Generate proxies to the inner driver, tee-ing the event stream into
// Prometheus counters without buffering or reordering it.
func (d *InstrumentedDriver) Generate(ctx context.Context, req *core.NormalizedRequest, cred Credentials) (<-chan core.Event, error) {
	provider := d.inner.Name()
	model := cred.Model
	callsTotal.WithLabelValues(provider, model).Inc()

	inner, err := d.inner.Generate(ctx, req, cred)
	if err != nil {
		errorsTotal.WithLabelValues(provider, model, fmt.Sprintf("%T", err)).Inc()
		return nil, err
	}

	out := make(chan core.Event, 16)
	go func() {
		defer close(out)
		start := time.Now()
		firstEvent := true
		for ev := range inner {
			if firstEvent && (ev.Kind == core.EventContent || ev.Kind == core.EventToolCallFragment) {
				ttftSeconds.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
				firstEvent = false
			}
			switch ev.Kind {
			case core.EventError:
				errorsTotal.WithLabelValues(provider, model, fmt.Sprintf("%T", ev.Err)).Inc()
			case core.EventUsage:
				tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(ev.Usage.PromptTokens))
				tokensTotal.WithLabelValues(provider, model, "candidates").Add(float64(ev.Usage.CandidatesTokens))
			}
			out <- ev
		}
	}()
	return out, nil
}

var _ Driver = (*InstrumentedDriver)(nil)
