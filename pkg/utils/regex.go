package utils

import (
	"regexp"
)

// httpURLPattern matches absolute http/https URLs; sitemap loc entries that
// fail it (relative paths, ftp:, mailto:, stray text nodes) are discarded.
var httpURLPattern = regexp.MustCompile(`^https?://`)

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	return httpURLPattern.MatchString(s)
}
