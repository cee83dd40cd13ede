package openmrs

import (
	"go.uber.org/ratelimit"
)

type RateLimiter struct {
	rl ratelimit.Limiter
}

// NewRateLimiter returns a limiter allowing the given number of requests per second. Zero disables limiting.
func NewRateLimiter(requestsPerSecond uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{rl: ratelimit.NewUnlimited()}
	}
	return &RateLimiter{
		rl: ratelimit.New(int(requestsPerSecond)),
	}
}

// WaitOrContinue blocks if the rate limit is exceeded
func (r *RateLimiter) WaitOrContinue() {
	r.rl.Take()
}
