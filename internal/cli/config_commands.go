package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage folderlink configuration",
		Long: `Configuration management commands for folderlink.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the listing API connection
  path  - Show configuration and log paths`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup. Press enter to keep a default.

The proxy password is never saved; set FOLDERLINK_PROXY_PASSWORD or enter
it when prompted.

Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if path == "" {
				return fmt.Errorf("cannot determine configuration path; use --config")
			}
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigInit(bufio.NewReader(cmd.InOrStdin()), out)
			if err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("configuration saved")
			fmt.Fprintf(out, "\n✓ Configuration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// runConfigInit asks for each setting and returns a validated config.
func runConfigInit(reader *bufio.Reader, out io.Writer) (*config.Config, error) {
	cfg := config.New()

	fmt.Fprintln(out, "folderlink Configuration Setup")
	fmt.Fprintln(out, "==============================")
	fmt.Fprintln(out)

	cfg.APIBaseURL = promptLine(reader, out, "Listing API base URL", cfg.APIBaseURL)
	cfg.SitePrefix = promptLine(reader, out, "Share site prefix", cfg.SitePrefix)
	cfg.DownloadDir = promptLine(reader, out, "Download directory", cfg.DownloadDir)
	cfg.DownloadWorkers = promptInt(reader, out, "Concurrent downloads", cfg.DownloadWorkers)
	cfg.PlayerCommand = promptLine(reader, out, "Player command", cfg.PlayerCommand)
	cfg.PreviewCommand = promptLine(reader, out, "Image preview command", cfg.PreviewCommand)

	fmt.Fprintln(out)
	cfg.ProxyMode = strings.ToLower(promptLine(reader, out, "Proxy mode (no-proxy, system, basic, ntlm)", cfg.ProxyMode))
	if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
		cfg.ProxyHost = promptLine(reader, out, "Proxy host", cfg.ProxyHost)
		cfg.ProxyPort = promptInt(reader, out, "Proxy port", cfg.ProxyPort)
		cfg.ProxyUser = promptLine(reader, out, "Proxy user", cfg.ProxyUser)
		cfg.NoProxy = promptLine(reader, out, "Bypass list (no_proxy)", cfg.NoProxy)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func promptInt(reader *bufio.Reader, out io.Writer, label string, def int) int {
	for {
		answer := promptLine(reader, out, label, strconv.Itoa(def))
		n, err := strconv.Atoi(answer)
		if err == nil {
			return n
		}
		fmt.Fprintf(out, "  %q is not a number\n", answer)
		if _, peekErr := reader.Peek(1); peekErr != nil {
			return def
		}
	}
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

The configuration is merged from:
  1. Configuration file (~/.config/folderlink/config)
  2. Environment variables (FOLDERLINK_API_URL, FOLDERLINK_DOWNLOAD_DIR)
  3. Command-line flags (--api-url, --download-dir)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			cfg.ApplyEnv()
			if apiBaseURL != "" {
				cfg.APIBaseURL = apiBaseURL
			}
			if downloadDir != "" {
				cfg.DownloadDir = downloadDir
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}
	return cmd
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "API Settings:")
	fmt.Fprintf(out, "  API Base URL:    %s\n", cfg.APIBaseURL)
	fmt.Fprintf(out, "  Site Prefix:     %s\n", cfg.SitePrefix)
	fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
	fmt.Fprintf(out, "  Max Retries:     %d\n", cfg.RetryMax)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
		if cfg.ProxyPassword != "" {
			fmt.Fprintln(out, "  Password:   <set>")
		} else {
			fmt.Fprintln(out, "  Password:   <not set>")
		}
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Downloads:")
	fmt.Fprintf(out, "  Directory: %s\n", cfg.DownloadDir)
	fmt.Fprintf(out, "  Workers:   %d\n", cfg.DownloadWorkers)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Players:")
	fmt.Fprintf(out, "  Stream:  %s\n", cfg.PlayerCommand)
	fmt.Fprintf(out, "  Preview: %s\n", cfg.PreviewCommand)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the listing API connection",
		Long: `Validate the configuration and send one request to the listing API
through the configured proxy. Any HTTP answer counts as reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "API URL: %s\n", cfg.APIBaseURL)
			fmt.Fprintf(out, "Proxy:   %s\n", cfg.ProxyMode)
			fmt.Fprintln(out, "Testing connection...")

			client, err := http.NewClient(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to configure HTTP client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), cfg.RequestTimeout)
			defer cancel()

			start := time.Now()
			status, err := probe(ctx, client, cfg.APIBaseURL)
			if err != nil {
				logger.Error().Err(err).Str("class", http.ErrorTypeName(http.ClassifyError(err))).Msg("connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			fmt.Fprintf(out, "✓ Connection SUCCESSFUL (HTTP %d in %s)\n", status, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	return cmd
}

// probe sends one GET to target and returns the status code.
func probe(ctx context.Context, client *nethttp.Client, target string) (int, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid API URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration and log paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			if cfgFile != "" {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			} else {
				fmt.Fprintln(out, "Default configuration path:")
			}
			fmt.Fprintf(out, "  %s\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out, "Create one with: folderlink config init")
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Log directory:\n  %s\n", config.LogDirectory())
			return nil
		},
	}
	return cmd
}
