package http

import (
	"context"
	"errors"
	"math/rand"
	"net"
	nethttp "net/http"
	"strings"
	"time"
)

// ErrorType classifies a failed request for logging and retry decisions.
type ErrorType int

const (
	// ErrorTypeSuccess indicates the request succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeAuth indicates proxy or upstream authentication failure (401, 403, 407)
	ErrorTypeAuth
	// ErrorTypeNetwork indicates network/connection issues (timeouts, resets, refused)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors that can be retried (429, 5xx)
	ErrorTypeRetryable
	// ErrorTypeCancelled indicates the caller's context ended the request
	ErrorTypeCancelled
	// ErrorTypeFatal indicates errors that retrying cannot fix
	ErrorTypeFatal
)

// ClassifyResponse classifies the outcome of one HTTP round trip.
func ClassifyResponse(resp *nethttp.Response, err error) ErrorType {
	if err != nil {
		return ClassifyError(err)
	}
	if resp == nil {
		return ErrorTypeFatal
	}
	switch {
	case resp.StatusCode == nethttp.StatusUnauthorized,
		resp.StatusCode == nethttp.StatusForbidden,
		resp.StatusCode == nethttp.StatusProxyAuthRequired:
		return ErrorTypeAuth
	case resp.StatusCode == nethttp.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return ErrorTypeRetryable
	case resp.StatusCode >= 400:
		return ErrorTypeFatal
	}
	return ErrorTypeSuccess
}

// ClassifyError determines the error type of a transport error.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "proxy authentication required") ||
		strings.Contains(errStr, "407") ||
		strings.Contains(errStr, "unauthorized") {
		return ErrorTypeAuth
	}

	if strings.Contains(errStr, "tls handshake timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "service unavailable") {
		return ErrorTypeRetryable
	}

	// Unknown errors are treated as fatal to avoid retry loops.
	return ErrorTypeFatal
}

// CalculateBackoff returns exponential backoff duration with full jitter
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ErrorTypeName returns a human-readable name for an ErrorType
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeCancelled:
		return "cancelled"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
