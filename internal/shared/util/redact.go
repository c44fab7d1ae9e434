package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (PATs, JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Airtable personal access tokens look like pat<id>.<secret>.
	airtablePATRe = regexp.MustCompile(`\bpat[A-Za-z0-9]{8,}\.[A-Za-z0-9]+`)

	// token=... in trigger URLs.
	tokenQueryRe = regexp.MustCompile(`(?i)([?&]token=)[^&\s"']+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = airtablePATRe.ReplaceAllString(out, "<redacted_pat>")
	out = tokenQueryRe.ReplaceAllString(out, "${1}<redacted>")
	return strings.TrimSpace(out)
}
