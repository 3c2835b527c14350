package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/http"
)

// resolveProxyPassword asks for the proxy password when the proxy needs
// one and neither the config nor the environment supplied it. Without a
// terminal on in, the proxy is left to fail at connect time.
func resolveProxyPassword(cfg *config.Config, in *os.File, out io.Writer) error {
	if !http.NeedsProxyPassword(cfg) {
		return nil
	}
	if !term.IsTerminal(int(in.Fd())) {
		GetLogger().Warn().
			Str("user", cfg.ProxyUser).
			Msgf("proxy password not set; export %s", config.EnvProxyPassword)
		return nil
	}

	fmt.Fprintf(out, "Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost)
	password, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read proxy password: %w", err)
	}
	cfg.ProxyPassword = string(password)
	return nil
}

// promptLine prints label with its default and returns the trimmed answer,
// or def when the answer is empty.
func promptLine(reader *bufio.Reader, out io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}
