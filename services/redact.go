package services

import (
	"regexp"
	"strings"
)

var googleAPIKeyPattern = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`)

// RedactSecrets removes the given secrets and anything shaped like a Google
// API key from s.
func RedactSecrets(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret = strings.TrimSpace(secret); len(secret) >= 8 {
			s = strings.ReplaceAll(s, secret, "[redacted]")
		}
	}
	return googleAPIKeyPattern.ReplaceAllString(s, "[redacted]")
}
