// Package limiter counts attempts per key in fixed windows.
package limiter

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Count      int64
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count, limit int64, ttl time.Duration) Decision {
	d := Decision{Allowed: count <= limit, Count: count, Remaining: max(limit-count, 0)}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}
