package resilience

import (
	"errors"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("http 404")))

	assert.True(t, IsTransient(NewTransientError(errors.New("http 500"), 500)))
	assert.True(t, IsTransient(&RateLimitedError{Err: errors.New("http 429")}))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(syscall.ECONNREFUSED))

	// Wrapped transient errors keep their classification.
	wrapped := eris.Wrap(NewTransientError(errors.New("http 503"), 503), "fetch page")
	assert.True(t, IsTransient(wrapped))

	// String heuristics for pre-wrapped client errors.
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("Get \"https://x\": tls handshake timeout")))
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.True(t, IsRateLimited(&RateLimitedError{Err: errors.New("http 429")}))
	assert.True(t, IsRateLimited(eris.Wrap(&RateLimitedError{Err: errors.New("http 429")}, "page 3")))
}

func TestIsMalformed(t *testing.T) {
	assert.False(t, IsMalformed(errors.New("plain")))
	assert.True(t, IsMalformed(&MalformedDataError{Err: errors.New("bad csv")}))
}

func TestIsSourceUnavailable(t *testing.T) {
	err := &SourceUnavailableError{Source: "transparencia-bulk", Err: errors.New("http 403")}
	assert.True(t, IsSourceUnavailable(err))
	assert.Contains(t, err.Error(), "transparencia-bulk")
	assert.False(t, IsSourceUnavailable(errors.New("plain")))
}
