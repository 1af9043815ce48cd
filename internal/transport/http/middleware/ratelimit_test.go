package middleware

import "testing"

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(10)

	if !rl.Allow("10.0.0.1") {
		t.Error("first request rejected")
	}
}

func TestRateLimiter_FractionalRateStillAdmits(t *testing.T) {
	// A rate below 1 RPS must still leave room for a single request
	// instead of rounding down to a bucket that never fills.
	rl := NewRateLimiter(0.5)

	if !rl.Allow("10.0.0.2") {
		t.Error("fractional rate rejected the first request")
	}
	if rl.Allow("10.0.0.2") {
		t.Error("second immediate request should exceed the burst of 1")
	}
}

func TestRateLimiter_PerIPBuckets(t *testing.T) {
	rl := NewRateLimiter(0.5)

	if !rl.Allow("10.0.0.3") {
		t.Fatal("first client rejected")
	}
	if !rl.Allow("10.0.0.4") {
		t.Error("second client shares the first client's bucket")
	}
}
