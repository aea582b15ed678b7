// Package security keeps credentials out of logs, errors and output.
package security

import (
	"regexp"
	"strings"
)

// credentialPatterns match credentials embedded in URLs, headers and
// provider error bodies. The first group is kept, the second masked.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key[=:]\s*["']?)([^\s&"']+)`),
	regexp.MustCompile(`(?i)(bearer\s+)([^\s"']+)`),
	regexp.MustCompile(`(?i)(access[_-]?token[=:]\s*["']?)([^\s&"']+)`),
}

// MaskSecret keeps the last four characters of a credential.
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// Redact masks every credential found in s.
func Redact(s string) string {
	for _, re := range credentialPatterns {
		s = re.ReplaceAllStringFunc(s, func(m string) string {
			parts := re.FindStringSubmatch(m)
			return parts[1] + "****"
		})
	}
	return s
}
