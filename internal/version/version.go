// Package version holds build version information. It is separate from
// cli so that transport packages can read it without an import cycle.
package version

import "github.com/folderlink/folderlink/internal/constants"

// Version is the build version string, set by ldflags during build.
var Version = "v1.0.0-dev"

// BuildTime is the build timestamp, set by ldflags during build.
var BuildTime = "unknown"

// UserAgent is sent with every listing and download request.
func UserAgent() string {
	return constants.AppName + "/" + Version
}
