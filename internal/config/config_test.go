package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/folderlink/folderlink/internal/constants"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.APIBaseURL != constants.DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != constants.DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadConfigParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := `[api]
base_url = http://localhost:8787/?url=
site_prefix = https://example.com/s/
request_timeout_seconds = 12
retry_max = 1

[proxy]
mode = BASIC
host = proxy.local
port = 3128
no_proxy = localhost

[download]
directory = /tmp/dl
workers = 4

[player]
command = vlc
preview_command = feh
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8787/?url=" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SitePrefix != "https://example.com/s/" {
		t.Errorf("SitePrefix = %q", cfg.SitePrefix)
	}
	if cfg.RequestTimeout != 12*time.Second {
		t.Errorf("RequestTimeout = %v, want 12s", cfg.RequestTimeout)
	}
	if cfg.RetryMax != 1 {
		t.Errorf("RetryMax = %d, want 1", cfg.RetryMax)
	}
	if cfg.ProxyMode != "basic" || cfg.ProxyHost != "proxy.local" || cfg.ProxyPort != 3128 {
		t.Errorf("proxy = %q %q %d", cfg.ProxyMode, cfg.ProxyHost, cfg.ProxyPort)
	}
	if cfg.DownloadDir != "/tmp/dl" || cfg.DownloadWorkers != 4 {
		t.Errorf("download = %q %d", cfg.DownloadDir, cfg.DownloadWorkers)
	}
	if cfg.PlayerCommand != "vlc" || cfg.PreviewCommand != "feh" {
		t.Errorf("player = %q %q", cfg.PlayerCommand, cfg.PreviewCommand)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config")

	cfg := New()
	cfg.APIBaseURL = "http://127.0.0.1:9000/?url="
	cfg.ProxyMode = "ntlm"
	cfg.ProxyHost = "corp-proxy"
	cfg.ProxyPassword = "secret"
	cfg.DownloadWorkers = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want 600", perm)
		}
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.APIBaseURL != cfg.APIBaseURL || loaded.ProxyHost != "corp-proxy" || loaded.DownloadWorkers != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.ProxyPassword != "" {
		t.Error("proxy password must not be persisted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty base url", func(c *Config) { c.APIBaseURL = " " }, ErrMissingAPIBaseURL},
		{"timeout too small", func(c *Config) { c.RequestTimeout = 0 }, ErrInvalidTimeout},
		{"retry too large", func(c *Config) { c.RetryMax = 11 }, ErrInvalidRetryMax},
		{"unknown proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"basic without host", func(c *Config) { c.ProxyMode = "basic" }, ErrMissingProxyHost},
		{"no download dir", func(c *Config) { c.DownloadDir = "" }, ErrMissingDownloadDir},
		{"zero workers", func(c *Config) { c.DownloadWorkers = 0 }, ErrInvalidWorkerCount},
		{"no player", func(c *Config) { c.PlayerCommand = "" }, ErrMissingPlayerCmd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "http://env/?url=")
	t.Setenv(EnvDownloadDir, "/env/dl")
	t.Setenv(EnvProxyPassword, "s3cret")

	cfg := New()
	cfg.ApplyEnv()

	if cfg.APIBaseURL != "http://env/?url=" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.DownloadDir != "/env/dl" {
		t.Errorf("DownloadDir = %q", cfg.DownloadDir)
	}
	if cfg.ProxyPassword != "s3cret" {
		t.Errorf("ProxyPassword not taken from environment")
	}
}
