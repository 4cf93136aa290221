package llm

import "time"

// RetryConfig bounds how hard the client leans on a single endpoint before
// the fallback chain takes over.
type RetryConfig struct {
	// MaxAttempts is the attempt budget per endpoint, first try included.
	MaxAttempts int

	// BackoffBase is the wait before the first retry.
	BackoffBase time.Duration

	// BackoffMultiplier grows the wait on each further retry.
	BackoffMultiplier float64

	// MaxBackoff caps a single wait regardless of attempt count.
	MaxBackoff time.Duration
}

// DefaultRetryConfig fits the per-generator slot: three attempts with a 1s
// base and an 8s cap keep a full retry cycle, plus one fallback endpoint,
// well inside the orchestrator's generation timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        8 * time.Second,
	}
}
