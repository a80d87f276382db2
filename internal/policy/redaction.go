// Package policy masks sensitive substrings before text leaves the process
// through logs, traces or the history command.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[a-zA-Z0-9._\-]+`)
	apiKeyPattern = regexp.MustCompile(`\b(?:sk|pk|rk)-[a-zA-Z0-9_\-]{12,}`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Cards before phones, or card numbers match the phone pattern.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// RedactSecrets masks bearer tokens and provider API keys that upstream error
// bodies sometimes echo back.
func RedactSecrets(input string) string {
	out := bearerPattern.ReplaceAllString(input, "Bearer [REDACTED]")
	return apiKeyPattern.ReplaceAllString(out, "[REDACTED_KEY]")
}

// ForLog applies both secret and PII redaction.
func ForLog(input string) string {
	out, _ := RedactPII(RedactSecrets(input))
	return out
}

// HashID returns a short stable digest of an identifier such as a phone-number
// uid, so logs and spans can correlate one user without storing the raw id.
func HashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}
