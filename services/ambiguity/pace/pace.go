// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pace spaces outgoing model calls so parallel pipeline stages
// share one minimum-interval budget instead of each keeping their own.
package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the default spacing between model calls.
const DefaultMinInterval = 100 * time.Millisecond

// Pacer enforces a minimum interval between calls across goroutines.
//
// Description:
//
//	One Pacer is shared by every stage that talks to the model, so three
//	parallel chunk workers still emit at most one request per interval.
//	Burst is 1: the first call proceeds immediately, every later call
//	waits out the remainder of the interval.
//
// Thread Safety: Safe for concurrent use.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given minimum interval between calls.
//
// Inputs:
//   - minInterval: Spacing between calls. Pass 0 for DefaultMinInterval.
func New(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the caller may proceed or ctx is done.
//
// Outputs:
//   - error: ctx.Err() if the context expired while waiting, else nil.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
