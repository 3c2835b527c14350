// Package cli provides the command-line interface for folderlink.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/logging"
)

var (
	// Global flags
	cfgFile     string
	apiBaseURL  string
	downloadDir string
	verbose     bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information, set by the main package at startup.
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Browse shared folders through a listing API",
		Long: `folderlink ` + Version + ` - Built: ` + BuildTime + `
Browse a shared folder tree through a proxying listing API, stream videos,
preview images and download files.

Interactive:
  folderlink browse [link]

Scripting:
  folderlink ls <link> [folder/sub]
  folderlink get <proxy-url>...`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logger == nil {
				logger = logging.NewDefaultCLILogger()
			}
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Listing API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&downloadDir, "download-dir", "", "Download directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for folderlink.

  bash:  source <(folderlink completion bash)
  zsh:   folderlink completion zsh > "${fpath[1]}/_folderlink"
  fish:  folderlink completion fish > ~/.config/fish/completions/folderlink.fish`,
	}
	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context. It is cancelled on Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// configPath returns --config or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

// loadConfig merges the config file, environment and flags, in that order
// of increasing priority, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	if downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := resolveProxyPassword(cfg, os.Stdin, os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}
