package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-process sliding-window rate limiter keyed by
// (bucket, identity). Resets on restart; suitable for abuse mitigation,
// not for strict quota accounting across instances.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]map[string][]time.Time
	now     func() time.Time
}

// NewLimiter creates an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether identity may perform another action in bucket.
// The window slides: timestamps older than window are pruned on every
// call, and the call is rejected once max remain inside it.
func (l *Limiter) Allow(identity, bucket string, max int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	bucketMap, ok := l.buckets[bucket]
	if !ok {
		bucketMap = make(map[string][]time.Time)
		l.buckets[bucket] = bucketMap
	}

	hits := bucketMap[identity]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= max {
		bucketMap[identity] = kept
		return false
	}

	bucketMap[identity] = append(kept, now)
	return true
}

// RetryAfter reports how long identity must wait before the next call in
// bucket would be allowed. Zero means it is allowed now.
func (l *Limiter) RetryAfter(identity, bucket string, max int, window time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucketMap, ok := l.buckets[bucket]
	if !ok {
		return 0
	}

	now := l.now()
	cutoff := now.Add(-window)

	hits := bucketMap[identity]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	bucketMap[identity] = kept

	if len(kept) < max {
		return 0
	}
	return window - now.Sub(kept[0])
}
