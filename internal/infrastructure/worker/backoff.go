package worker

import (
	"math"
	"math/rand"
	"time"
)

// backoff returns 1s * 2^(attempts-1), capped at maxBackoff
func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

// jitter returns a random duration in [0, maxJitter]
func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1))
}

// truncateError bounds the error text stored with a message
func truncateError(err error, max int) string {
	msg := err.Error()
	if max > 0 && len(msg) > max {
		return msg[:max]
	}
	return msg
}
