// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"time"
)

// Pacer decides how long to wait between consecutive API requests.
// Implementations must return ctx.Err() if the context ends while waiting.
type Pacer interface {
	Wait(ctx context.Context) error
}

// ConstantDelay waits the same fixed duration after every request,
// independent of response size or status.
type ConstantDelay time.Duration

// Wait sleeps for the configured delay or until ctx is cancelled.
func (d ConstantDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay never waits.
var NoDelay Pacer = ConstantDelay(0)
