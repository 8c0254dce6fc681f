package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type VolleyObserverError struct {
	Message string
	Cause   error
}

func (e *VolleyObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *VolleyObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions where callers care.
// ValidationError: bad request, no side effect. DatabaseError: store
// rejected a read/write. TransportError: a session's socket failed.
type ConfigurationError struct{ VolleyObserverError }
type ValidationError struct{ VolleyObserverError }
type DatabaseError struct{ VolleyObserverError }
type TransportError struct{ VolleyObserverError }

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff. Used for startup-time work (initial store
// connection); request-path failures are surfaced synchronously, never
// retried.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
