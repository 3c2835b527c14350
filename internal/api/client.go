package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/http"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
	"github.com/folderlink/folderlink/internal/ratelimit"
	"github.com/folderlink/folderlink/internal/version"
)

// maxListingBytes caps how much of a listing body is read.
const maxListingBytes = 32 << 20

// Client fetches listings. Apart from the shared request pacer it keeps
// no state between calls, so one Client serves any number of concurrent
// fetches.
type Client struct {
	httpClient *nethttp.Client
	timeout    time.Duration
	limiter    *ratelimit.RateLimiter
	logger     *logging.Logger
}

// NewClient creates a listing client with proxy support and retries.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("api")

	base, err := http.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	retryClient := http.NewRetryClient(base, cfg.RetryMax, logger)

	return &Client{
		httpClient: retryClient.StandardClient(),
		timeout:    cfg.RequestTimeout,
		limiter:    ratelimit.NewListingRateLimiter(logger),
		logger:     logger,
	}, nil
}

// listingWire mirrors models.Listing with a pointer status so a missing
// field can be told apart from an empty one.
type listingWire struct {
	Status  *string               `json:"status"`
	Entries []models.ListingEntry `json:"data"`
}

// Fetch issues one GET for location and decodes the listing.
//
// A decoded listing is returned whatever its status; judging it is the
// caller's job (see models.Listing.Err). Failures are *FetchError.
func (c *Client) Fetch(ctx context.Context, location string) (*models.Listing, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: ErrorKindTransport, Location: location, Err: err}
		}
	}

	start := time.Now()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrorKindTransport, Location: location, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Str("location", location).
			Str("class", http.ErrorTypeName(http.ClassifyError(err))).
			Err(err).
			Msg("listing request failed")
		return nil, &FetchError{Kind: ErrorKindTransport, Location: location, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, &FetchError{Kind: ErrorKindTransport, Location: location, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	listing, err := decodeListing(body)
	if err != nil {
		c.logger.Debug().
			Str("location", location).
			Int("status_code", resp.StatusCode).
			Err(err).
			Msg("listing body not decodable")
		return nil, &FetchError{Kind: ErrorKindDecode, Location: location, Err: err}
	}

	c.logger.Debug().
		Str("location", location).
		Int("status_code", resp.StatusCode).
		Str("status", listing.Status).
		Int("entries", len(listing.Entries)).
		Dur("took", time.Since(start)).
		Msg("listing fetched")

	return listing, nil
}

func decodeListing(body []byte) (*models.Listing, error) {
	var wire listingWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	if wire.Status == nil {
		return nil, errMissingStatus
	}
	return &models.Listing{Status: *wire.Status, Entries: wire.Entries}, nil
}
