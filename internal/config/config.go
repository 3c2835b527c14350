// Package config provides configuration management for folderlink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/folderlink/folderlink/internal/constants"
)

// Config is the full client configuration.
//
// Config file location: ~/.config/folderlink/config (os.UserConfigDir)
//
// INI format:
//
//	[api]
//	base_url = https://apiku.pribadiku-230.workers.dev/?url=
//	site_prefix = https://terabox.com/s/
//	request_timeout_seconds = 30
//	retry_max = 3
//
//	[proxy]
//	mode = no-proxy            ; no-proxy | system | basic | ntlm
//	host =
//	port = 8080
//	user =
//	no_proxy = localhost,10.0.0.0/8
//
//	[download]
//	directory = ~/Downloads
//	workers = 2
//
//	[player]
//	command = mpv
//	preview_command = xdg-open
type Config struct {
	// Listing API
	APIBaseURL     string
	SitePrefix     string
	RequestTimeout time.Duration
	RetryMax       int

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never written back to disk
	NoProxy       string
	ProxyWarmup   bool

	// Downloads
	DownloadDir     string
	DownloadWorkers int

	// External collaborators
	PlayerCommand  string
	PreviewCommand string
}

// Validation errors
var (
	ErrMissingAPIBaseURL  = errors.New("api base_url is required")
	ErrInvalidTimeout     = errors.New("request_timeout_seconds must be between 1 and 600")
	ErrInvalidRetryMax    = errors.New("retry_max must be between 0 and 10")
	ErrInvalidProxyMode   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost   = errors.New("proxy host is required for basic and ntlm modes")
	ErrMissingDownloadDir = errors.New("download directory is required")
	ErrInvalidWorkerCount = errors.New("download workers must be between 1 and 8")
	ErrMissingPlayerCmd   = errors.New("player command is required")
)

// Environment overrides
const (
	EnvAPIBaseURL    = "FOLDERLINK_API_URL"
	EnvDownloadDir   = "FOLDERLINK_DOWNLOAD_DIR"
	EnvProxyPassword = "FOLDERLINK_PROXY_PASSWORD"
)

// New returns a Config with default values.
func New() *Config {
	return &Config{
		APIBaseURL:      constants.DefaultAPIBaseURL,
		SitePrefix:      constants.DefaultSitePrefix,
		RequestTimeout:  constants.DefaultRequestTimeout,
		RetryMax:        constants.DefaultRetryMax,
		ProxyMode:       "no-proxy",
		ProxyPort:       8080,
		DownloadDir:     DefaultDownloadDir(),
		DownloadWorkers: constants.DefaultDownloadWorkers,
		PlayerCommand:   constants.DefaultPlayerCommand,
		PreviewCommand:  DefaultPreviewCommand(),
	}
}

// DefaultDownloadDir returns ~/Downloads, falling back to the temp dir.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.AppName)
	}
	return filepath.Join(home, "Downloads")
}

// DefaultPreviewCommand returns the platform's "open this URL" command.
func DefaultPreviewCommand() string {
	if runtime.GOOS == "darwin" {
		return constants.DefaultPreviewCommandDarwin
	}
	return constants.DefaultPreviewCommandLinux
}

// LoadConfig loads configuration from an INI file.
// A missing file yields defaults and no error; an unreadable or malformed
// file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	api := iniFile.Section("api")
	cfg.APIBaseURL = api.Key("base_url").MustString(cfg.APIBaseURL)
	cfg.SitePrefix = api.Key("site_prefix").MustString(cfg.SitePrefix)
	cfg.RequestTimeout = time.Duration(api.Key("request_timeout_seconds").MustInt(int(cfg.RequestTimeout/time.Second))) * time.Second
	cfg.RetryMax = api.Key("retry_max").MustInt(cfg.RetryMax)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = strings.ToLower(proxy.Key("mode").MustString(cfg.ProxyMode))
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	download := iniFile.Section("download")
	cfg.DownloadDir = expandHome(download.Key("directory").MustString(cfg.DownloadDir))
	cfg.DownloadWorkers = download.Key("workers").MustInt(cfg.DownloadWorkers)

	player := iniFile.Section("player")
	cfg.PlayerCommand = player.Key("command").MustString(cfg.PlayerCommand)
	cfg.PreviewCommand = player.Key("preview_command").MustString(cfg.PreviewCommand)

	return cfg, nil
}

// ApplyEnv overrides fields from FOLDERLINK_* environment variables.
func (cfg *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDownloadDir)); v != "" {
		cfg.DownloadDir = expandHome(v)
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		cfg.ProxyPassword = v
	}
}

// SaveConfig writes the configuration to an INI file atomically with
// owner-only permissions. The proxy password is not persisted.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	api, err := iniFile.NewSection("api")
	if err != nil {
		return fmt.Errorf("failed to create api section: %w", err)
	}
	api.Key("base_url").SetValue(cfg.APIBaseURL)
	api.Key("site_prefix").SetValue(cfg.SitePrefix)
	api.Key("request_timeout_seconds").SetValue(fmt.Sprintf("%d", int(cfg.RequestTimeout/time.Second)))
	api.Key("retry_max").SetValue(fmt.Sprintf("%d", cfg.RetryMax))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.ProxyWarmup))

	download, err := iniFile.NewSection("download")
	if err != nil {
		return fmt.Errorf("failed to create download section: %w", err)
	}
	download.Key("directory").SetValue(cfg.DownloadDir)
	download.Key("workers").SetValue(fmt.Sprintf("%d", cfg.DownloadWorkers))

	player, err := iniFile.NewSection("player")
	if err != nil {
		return fmt.Errorf("failed to create player section: %w", err)
	}
	player.Key("command").SetValue(cfg.PlayerCommand)
	player.Key("preview_command").SetValue(cfg.PreviewCommand)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration and returns the first problem found.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return ErrMissingAPIBaseURL
	}
	if cfg.RequestTimeout < time.Second || cfg.RequestTimeout > constants.MaxRequestTimeout {
		return ErrInvalidTimeout
	}
	if cfg.RetryMax < 0 || cfg.RetryMax > 10 {
		return ErrInvalidRetryMax
	}

	switch cfg.ProxyMode {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	if strings.TrimSpace(cfg.DownloadDir) == "" {
		return ErrMissingDownloadDir
	}
	if cfg.DownloadWorkers < 1 || cfg.DownloadWorkers > constants.MaxDownloadWorkers {
		return ErrInvalidWorkerCount
	}
	if strings.TrimSpace(cfg.PlayerCommand) == "" {
		return ErrMissingPlayerCmd
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
