package http

import (
	"context"
	"crypto/tls"
	nethttp "net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/logging"
)

// EnvDisableHTTP2 forces HTTP/1.1 when set to "true".
const EnvDisableHTTP2 = "FOLDERLINK_DISABLE_HTTP2"

// NewClient returns the shared *http.Client used for listing fetches and
// downloads. It starts from ConfigureHTTPClient (proxy handling) and tunes
// the transport for streaming response bodies.
//
// The client has no overall timeout. Listing fetches bound themselves with
// a context deadline, downloads run as long as the body keeps flowing.
func NewClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	baseClient.Timeout = 0

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a negotiator; leave it alone.
		return baseClient, nil
	}

	tr.MaxIdleConns = 64
	tr.MaxIdleConnsPerHost = 16
	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout
	tr.TLSHandshakeTimeout = constants.HTTPTLSHandshakeTimeout
	tr.ExpectContinueTimeout = constants.HTTPExpectContinueTimeout
	tr.ForceAttemptHTTP2 = true

	_ = http2.ConfigureTransport(tr)

	// Proxies tend to mishandle HTTP/2 multiplexing.
	if os.Getenv(EnvDisableHTTP2) == "true" || proxyActive(cfg) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	return baseClient, nil
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}

// NewRetryClient wraps base with go-retryablehttp.
//
// Connection errors and 5xx responses are retried up to retryMax times.
// When retries run out the last response is handed back unchanged instead
// of being turned into an error, so callers can still read its body.
func NewRetryClient(base *nethttp.Client, retryMax int, logger *logging.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = retryMax
	rc.RetryWaitMin = constants.RetryWaitMin
	rc.RetryWaitMax = constants.RetryWaitMax
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Backoff = jitterBackoff

	if logger != nil {
		rc.Logger = logger.ForRetries()
		rc.CheckRetry = loggingRetryPolicy(logger)
	} else {
		rc.Logger = nil
	}

	return rc
}

// loggingRetryPolicy defers to retryablehttp.DefaultRetryPolicy and records
// the error class of each retried failure.
func loggingRetryPolicy(logger *logging.Logger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
		retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry {
			class := ClassifyResponse(resp, err)
			logger.Debug().
				Str("class", ErrorTypeName(class)).
				Err(err).
				Msg("retrying request")
		}
		return retry, checkErr
	}
}

// jitterBackoff honours Retry-After on 429/503 and otherwise uses
// exponential backoff with full jitter.
func jitterBackoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	}
	if d := CalculateBackoff(attemptNum+1, min, max); d > 0 {
		return d
	}
	return min
}
