// Package sanitize cleans user-pasted links and server-supplied filenames.
//
// Pasted share links often carry zero-width characters, stray CR/LF and
// surrounding spaces. Filenames come from the server and must not escape
// the download directory.
package sanitize

import (
	"path/filepath"
	"strings"
)

var invisibleChars = []string{
	"\u200B", // Zero-width space
	"\u200C", // Zero-width non-joiner
	"\u200D", // Zero-width joiner
	"\uFEFF", // Zero-width no-break space (BOM)
	"\u00AD", // Soft hyphen
	"\u2060", // Word joiner
	"\u180E", // Mongolian vowel separator
}

// Link trims a pasted link and removes invisible characters and line breaks.
func Link(s string) string {
	if s == "" {
		return s
	}
	s = removeInvisibleChars(s)
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.TrimSpace(s)
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}

// Filename turns a server-supplied name into a single safe path element.
// Separators and control characters become "_". An empty or dot-only
// result falls back to "download".
func Filename(name string) string {
	name = removeInvisibleChars(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), " .")
	if out == "" || filepath.Base(out) != out {
		return "download"
	}
	return out
}
