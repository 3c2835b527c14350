package api

import (
	"strings"

	"github.com/folderlink/folderlink/internal/util/sanitize"
)

// ComposeRootLocation builds the root location for a pasted share link.
//
// The input is trimmed and cleaned of invisible characters. Input that does
// not start with "http" is treated as a share code and gets sitePrefix in
// front. The result is appended verbatim to apiBase, which is expected to
// end in a query parameter such as "?url=".
func ComposeRootLocation(apiBase, sitePrefix, input string) (string, error) {
	link := sanitize.Link(input)
	if link == "" {
		return "", ErrEmptyInput
	}
	if !strings.HasPrefix(link, "http") {
		link = sitePrefix + link
	}
	return apiBase + link, nil
}
