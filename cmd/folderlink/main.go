// folderlink browses shared folder trees through a proxying listing API.
package main

import (
	"os"

	"github.com/folderlink/folderlink/internal/cli"
	"github.com/folderlink/folderlink/internal/version"
)

// Version and BuildTime are injected via -ldflags.
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
