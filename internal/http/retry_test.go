package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/folderlink/folderlink/internal/config"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeSuccess},
		{"cancelled", fmt.Errorf("get: %w", context.Canceled), ErrorTypeCancelled},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ErrorTypeNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, ErrorTypeNetwork},
		{"reset", errors.New("read: connection reset by peer"), ErrorTypeNetwork},
		{"proxy auth", errors.New("Proxy Authentication Required"), ErrorTypeAuth},
		{"bad gateway", errors.New("unexpected status 502"), ErrorTypeRetryable},
		{"unknown", errors.New("something odd"), ErrorTypeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %s, want %s", ErrorTypeName(got), ErrorTypeName(tt.want))
			}
		})
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{200, ErrorTypeSuccess},
		{404, ErrorTypeFatal},
		{407, ErrorTypeAuth},
		{429, ErrorTypeRetryable},
		{503, ErrorTypeRetryable},
	}

	for _, tt := range tests {
		resp := &nethttp.Response{StatusCode: tt.status}
		if got := ClassifyResponse(resp, nil); got != tt.want {
			t.Errorf("ClassifyResponse(%d) = %s, want %s", tt.status, ErrorTypeName(got), ErrorTypeName(tt.want))
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	if d := CalculateBackoff(0, time.Millisecond, time.Second); d != 0 {
		t.Errorf("attempt 0 backoff = %v, want 0", d)
	}
	for attempt := 1; attempt < 20; attempt++ {
		d := CalculateBackoff(attempt, 10*time.Millisecond, 100*time.Millisecond)
		if d < 0 || d >= 100*time.Millisecond {
			t.Errorf("attempt %d backoff = %v, out of range", attempt, d)
		}
	}
	if d := CalculateBackoff(3, time.Millisecond, 0); d != 0 {
		t.Errorf("zero max backoff = %v, want 0", d)
	}
}

func TestRetryClientPassesThroughLastResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusBadGateway)
		fmt.Fprint(w, `{"status":"error"}`)
	}))
	defer server.Close()

	base, err := NewClient(config.New(), nopLogger)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	rc := NewRetryClient(base, 2, nopLogger)
	rc.RetryWaitMin = time.Millisecond
	rc.RetryWaitMax = 2 * time.Millisecond

	resp, err := rc.StandardClient().Get(server.URL)
	if err != nil {
		t.Fatalf("expected last response to pass through, got error %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", got)
	}
}
