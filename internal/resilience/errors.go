// Package resilience defines the pipeline error taxonomy and retry
// primitives. Errors are classified so that callers can recover at the
// right level: request retries for transient failures, record skips for
// malformed data, source fallback for unavailable upstreams.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitedError signals an HTTP 429. The fetcher retries once after a
// fixed cooldown rather than the exponential schedule.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string { return e.Err.Error() }
func (e *RateLimitedError) Unwrap() error { return e.Err }

// MalformedDataError marks a record that cannot be parsed. Callers skip the
// record, count it, and continue; one bad record never aborts a batch.
type MalformedDataError struct {
	Err error
}

func (e *MalformedDataError) Error() string { return e.Err.Error() }
func (e *MalformedDataError) Unwrap() error { return e.Err }

// SourceUnavailableError marks a whole source as unusable for this run,
// triggering orchestrator fallback to the next source in priority order.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return "source " + e.Source + " unavailable: " + e.Err.Error()
}
func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// ErrUnresolvedEntity is returned when a free-text reference cannot be
// attributed to a known entity. Not fatal; caller policy decides whether
// the record is kept unattributed or dropped.
var ErrUnresolvedEntity = errors.New("entity could not be resolved")

// ErrAlreadyExists reports a canonical-key conflict during persistence.
// Treated as "already reconciled", not a failure.
var ErrAlreadyExists = errors.New("record already exists")

// IsTransient reports whether the error chain contains a TransientError or
// matches common transient network failure patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors already wrapped by HTTP clients.
	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRateLimited reports whether the error chain contains a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsMalformed reports whether the error chain contains a MalformedDataError.
func IsMalformed(err error) bool {
	var me *MalformedDataError
	return errors.As(err, &me)
}

// IsSourceUnavailable reports whether the error chain marks a source as
// unusable for this run.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}
