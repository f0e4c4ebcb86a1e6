package rate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Window allows at most Limit actions per Span. A zero Limit disables the window.
type Window struct {
	Span  time.Duration
	Limit int
}

// Limiter enforces fixed windows per subject within a named scope, e.g. "reviews".
type Limiter struct {
	store   WindowStore
	scope   string
	windows []Window
}

func NewLimiter(store WindowStore, scope string, windows ...Window) *Limiter {
	active := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Span <= 0 || w.Limit <= 0 {
			continue
		}
		active = append(active, w)
	}

	return &Limiter{
		store:   store,
		scope:   strings.TrimSpace(scope),
		windows: active,
	}
}

// Allow counts one action for subject and reports whether it fits every window.
// When it does not, retryAfterSec is the wait until the tightest window resets.
func (l *Limiter) Allow(ctx context.Context, subject string) (int64, bool, error) {
	if strings.TrimSpace(subject) == "" {
		return 0, false, fmt.Errorf("rate subject is required")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, l.key(w, subject), w.Span)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.Limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfter reports the current wait without counting an action.
func (l *Limiter) RetryAfter(ctx context.Context, subject string) (int64, error) {
	if strings.TrimSpace(subject) == "" {
		return 0, fmt.Errorf("rate subject is required")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, l.key(w, subject))
		if err != nil {
			return 0, err
		}
		if count >= int64(w.Limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

func (l *Limiter) key(w Window, subject string) string {
	return "rate:" + l.scope + ":" + strconv.FormatInt(int64(w.Span/time.Second), 10) + "s:" + subject
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
