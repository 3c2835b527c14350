package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/version"
)

// ConfigureHTTPClient configures an HTTP client with proxy settings
func ConfigureHTTPClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}

	var client *nethttp.Client

	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		transport.Proxy = nil
		return &nethttp.Client{Transport: transport}, nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment
		client = &nethttp.Client{Transport: transport}

	case "ntlm":
		if cfg.ProxyHost == "" {
			logger.Warn().Msg("proxy mode is ntlm but host is missing, falling back to no-proxy")
			return &nethttp.Client{Transport: transport}, nil
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, logger)
		client = &nethttp.Client{
			Transport: ntlmssp.Negotiator{
				RoundTripper: transport,
			},
		}

	case "basic":
		if cfg.ProxyHost == "" {
			logger.Warn().Msg("proxy mode is basic but host is missing, falling back to no-proxy")
			return &nethttp.Client{Transport: transport}, nil
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, logger)
		if cfg.ProxyUser != "" && cfg.ProxyPassword == "" {
			logger.Warn().Msg("proxy user configured but password missing, proxy auth disabled")
		}
		client = &nethttp.Client{Transport: transport}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	if cfg.ProxyWarmup && credentialsComplete(cfg) {
		if err := warmupProxy(client, cfg); err != nil {
			return nil, fmt.Errorf("proxy warmup failed: %w", err)
		}
	}

	return client, nil
}

func credentialsComplete(cfg *config.Config) bool {
	if strings.ToLower(cfg.ProxyMode) == "system" {
		return true
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword != ""
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}

	// An empty password in the URL makes some proxies reject the request.
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

// warmupProxy sends one GET to the listing API so proxy auth is negotiated
// before the first real fetch.
func warmupProxy(client *nethttp.Client, cfg *config.Config) error {
	warmupURL := cfg.APIBaseURL
	if warmupURL == "" {
		warmupURL = constants.DefaultAPIBaseURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ProxyWarmupTimeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, warmupURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusProxyAuthRequired || resp.StatusCode >= 500 {
		return fmt.Errorf("warmup request returned status %d", resp.StatusCode)
	}

	return nil
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// With an empty noProxy it behaves like nethttp.ProxyURL. Otherwise hosts,
// domains and CIDRs are matched by golang.org/x/net/http/httpproxy.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string, logger *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	pcfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := pcfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			logger.Debug().Str("host", req.URL.Host).Msg("proxy bypass")
		} else {
			logger.Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword reports whether the proxy configuration has a user but
// no password. The CLI uses it to decide whether to prompt.
func NeedsProxyPassword(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
