// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"errors"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// retryPlan is what the LoadBalancer does in response to one classified error.
type retryPlan struct {
	retryable       bool
	bucketFailover  bool
	oneRetryFirst   bool // Authentication: retry once (token refresh), then failover
}

// classify maps a driver-reported error to a retry plan, per the error
// categorization table: RateLimit and Quota fail over (the sub-profile is
// marked exhausted); Authentication retries once then fails over;
// Server/Network leave the sub-profile eligible for another attempt and
// never fail over; Client errors are terminal. LoadBalancer.Generate makes
// each next attempt immediately; it waits no backoff delay between attempts.
func classify(err error) retryPlan {
	var (
		rateLimit *core.RateLimitError
		quota     *core.QuotaError
		auth      *core.AuthenticationRequiredError
		server    *core.ServerError
		network   *core.NetworkError
	)
	switch {
	case errors.As(err, &rateLimit):
		return retryPlan{retryable: true, bucketFailover: true}
	case errors.As(err, &quota):
		return retryPlan{retryable: false, bucketFailover: true}
	case errors.As(err, &auth):
		return retryPlan{retryable: true, bucketFailover: true, oneRetryFirst: true}
	case errors.As(err, &server):
		return retryPlan{retryable: true, bucketFailover: false}
	case errors.As(err, &network):
		return retryPlan{retryable: true, bucketFailover: false}
	default:
		return retryPlan{retryable: false, bucketFailover: false} // Client or unrecognized: terminal
	}
}
