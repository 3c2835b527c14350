// Package constants holds shared defaults and tuning values for folderlink.
package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the config directory and the User-Agent header.
	AppName = "folderlink"
)

// Listing endpoint defaults
const (
	// DefaultAPIBaseURL is the proxying listing API. A share address is appended verbatim.
	DefaultAPIBaseURL = "https://apiku.pribadiku-230.workers.dev/?url="

	// DefaultSitePrefix turns a bare share code into a full share address.
	DefaultSitePrefix = "https://terabox.com/s/"

	// ListingStatusSuccess is the only status value that makes a listing visible.
	ListingStatusSuccess = "success"
)

// Breadcrumb labels shown next to the back affordance
const (
	BreadcrumbRoot = "root folder"
	BreadcrumbSub  = "sub folder"
)

// Retry settings for the listing client (go-retryablehttp)
const (
	// DefaultRetryMax - retries after the first attempt (4 total)
	DefaultRetryMax = 3

	RetryWaitMin = 500 * time.Millisecond
	RetryWaitMax = 5 * time.Second
)

// Listing request pacing (ratelimit token bucket)
const (
	// ListingRatePerSec - sustained listing fetches per second
	ListingRatePerSec = 4.0

	// ListingBurstCapacity - fetches allowed back to back before pacing starts
	ListingBurstCapacity = 20.0
)

// Request timeouts
const (
	// DefaultRequestTimeout bounds one listing fetch, including retries.
	DefaultRequestTimeout = 30 * time.Second

	// MaxRequestTimeout caps request_timeout_seconds from config.
	MaxRequestTimeout = 10 * time.Minute
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for event channels
	EventBusMaxBuffer = 4096
)

// Download settings
const (
	// DefaultDownloadWorkers - concurrent background downloads
	DefaultDownloadWorkers = 2

	// MaxDownloadWorkers caps [download] workers from config.
	MaxDownloadWorkers = 8

	// DownloadBufferSize - copy buffer for streaming response bodies to disk (1 MiB)
	DownloadBufferSize = 1024 * 1024

	// PartialSuffix marks a download still in progress.
	PartialSuffix = ".part"

	// ProgressUpdateInterval throttles transfer progress events.
	ProgressUpdateInterval = 300 * time.Millisecond
)

// Default external commands
const (
	DefaultPlayerCommand = "mpv"

	DefaultPreviewCommandLinux  = "xdg-open"
	DefaultPreviewCommandDarwin = "open"
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (15 seconds)
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (15 seconds)
	HTTPDialTimeout = 15 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ProxyWarmupTimeout bounds the optional proxy warmup request.
	ProxyWarmupTimeout = 15 * time.Second
)
