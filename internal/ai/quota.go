package ai

import (
	"sync"
	"time"
)

// TokenCounter tracks per-minute and per-day consumption against the tier
// limits so the client can refuse work before the API does.
type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

func NewTokenCounter(limits RateLimits) *TokenCounter {
	now := time.Now()
	return &TokenCounter{
		limits:          limits,
		lastMinuteReset: now,
		lastDayReset:    now,
	}
}

// CanConsume reports whether the given tokens/requests fit in the remaining
// minute and day windows. It does not reserve them.
func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.resetWindows()

	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}
	return true
}

// Consume records usage after a successful call.
func (tc *TokenCounter) Consume(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.resetWindows()

	tc.minuteTokens += tokens
	tc.dailyTokens += tokens
	tc.minuteRequests += requests
	tc.dailyRequests += requests
}

func (tc *TokenCounter) resetWindows() {
	now := time.Now()
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}
	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}
}
