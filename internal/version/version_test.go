package version

import "testing"

func TestUserAgent(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v2.3.4"
	if got := UserAgent(); got != "folderlink/v2.3.4" {
		t.Errorf("UserAgent() = %q", got)
	}
}
