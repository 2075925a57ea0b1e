// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retryPlan
	}{
		{"rate limit retries and fails over", &core.RateLimitError{Provider: "openai"}, retryPlan{retryable: true, bucketFailover: true}},
		{"quota fails over without retry", &core.QuotaError{Provider: "openai"}, retryPlan{retryable: false, bucketFailover: true}},
		{"auth retries once then fails over", &core.AuthenticationRequiredError{Provider: "openai", Status: 401}, retryPlan{retryable: true, bucketFailover: true, oneRetryFirst: true}},
		{"server retries without failover", &core.ServerError{Provider: "openai", Status: 500}, retryPlan{retryable: true, bucketFailover: false}},
		{"network retries without failover", &core.NetworkError{Provider: "openai", Cause: errors.New("reset")}, retryPlan{retryable: true, bucketFailover: false}},
		{"client error terminal", &core.ClientError{Provider: "openai", Status: 400}, retryPlan{retryable: false, bucketFailover: false}},
		{"unrecognized error terminal", errors.New("boom"), retryPlan{retryable: false, bucketFailover: false}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.err))
		})
	}
}
