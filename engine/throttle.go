package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// writeLimiter paces background compactions to at most
// Options.CompactionThrottleBytesPerSec input bytes per second (flushes,
// which run inline on the write path, are not throttled), replacing the
// teacher's unimplemented rate-control TODO (dialtr-pebble/db.go has no
// `controller` at all in this snapshot; SPEC_FULL.md's DOMAIN STACK assigns
// this concern to github.com/cockroachdb/tokenbucket). A nil limiter (rate
// <= 0) never throttles.
type writeLimiter struct {
	tb *tokenbucket.TokenBucket
}

func newWriteLimiter(bytesPerSec float64) *writeLimiter {
	if bytesPerSec <= 0 {
		return nil
	}
	tb := &tokenbucket.TokenBucket{}
	tb.Init(tokenbucket.TokensPerSecond(bytesPerSec), tokenbucket.Tokens(bytesPerSec))
	return &writeLimiter{tb: tb}
}

// waitN blocks until n bytes' worth of budget is available, or ctx is
// cancelled.
func (l *writeLimiter) waitN(ctx context.Context, n int) error {
	if l == nil {
		return nil
	}
	for {
		ok, tryAgainAfter := l.tb.TryToFulfill(tokenbucket.Tokens(n))
		if ok {
			return nil
		}
		timer := time.NewTimer(tryAgainAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
