package github

import (
	"log"
	"strings"
	"time"
)

const (
	// Comment posting happens on the webhook reply path, so the retry
	// budget stays small: 3 attempts, ~1.5s worst case.
	defaultMaxRetries   = 2
	defaultInitialDelay = 500 * time.Millisecond
)

// retryWithBackoff executes fn with exponential backoff on transient errors.
func retryWithBackoff(fn func() error) error {
	return retryWithBackoffCustom(defaultMaxRetries, defaultInitialDelay, fn)
}

func retryWithBackoffCustom(maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[GitHub] Retry %d/%d after %v", attempt, maxRetries, delay)
			time.Sleep(delay)
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// isRetryableError reports whether err looks like a transient network or
// throttling failure rather than a permanent one.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"eof",
		"timeout",
		"connection refused",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"rate limit",
		"502",
		"503",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
