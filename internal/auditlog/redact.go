// Package auditlog writes the per-day run log kept inside the vault.
// Every line passes through Redact before it reaches storage.
package auditlog

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces every secret found in a log message
const RedactedPlaceholder = "***REDACTED***"

// redactFailedMessage is written instead of the original content when redaction fails
const redactFailedMessage = `redact=FAILED message="Log redaction failed; original content suppressed."`

type redactRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: header forms run before bare tokens so the prefix survives.
var redactRules = []redactRule{
	{regexp.MustCompile(`(?i)(Authorization\s*:\s*Bearer\s+)([^\s]+)`), "${1}" + RedactedPlaceholder},
	{regexp.MustCompile(`\bBearer\s+([A-Za-z0-9\-\._~\+\/]+=*)`), "Bearer " + RedactedPlaceholder},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{10,}`), RedactedPlaceholder},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{20,}`), RedactedPlaceholder},
	{regexp.MustCompile(`\b(?:xoxb|xoxp|xoxa|xoxr)-[0-9A-Za-z\-]{10,}`), RedactedPlaceholder},
	{regexp.MustCompile(`\bghp_[0-9A-Za-z]{20,}`), RedactedPlaceholder},
	{regexp.MustCompile(`\bgithub_pat_[0-9A-Za-z_]{20,}`), RedactedPlaceholder},
	{regexp.MustCompile(`\b([A-Z0-9_]{2,})(?:API)?_?KEY\s*=\s*([^\s"']+)`), "${1}KEY=" + RedactedPlaceholder},
	{regexp.MustCompile(`(?i)([?&](?:api_key|apikey|access_token|token|key)=)([^&#\s]+)`), "${1}" + RedactedPlaceholder},
}

// Redact replaces bearer tokens, provider API keys, KEY=value assignments and
// credential query parameters with RedactedPlaceholder.
func Redact(text string) string {
	out := text
	for _, rule := range redactRules {
		out = rule.pattern.ReplaceAllString(out, rule.replacement)
	}
	return out
}

// RedactFunc is the signature of a redactor
type RedactFunc func(string) string

// safeRedact runs redact and returns fallback if it panics
func safeRedact(redact RedactFunc, message, fallback string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback
		}
	}()
	return redact(message)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// OneLine collapses newlines, tabs and whitespace runs into single spaces
func OneLine(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// OneLineAndTruncate is OneLine capped at maxLen runes
func OneLineAndTruncate(text string, maxLen int) string {
	line := OneLine(text)
	runes := []rune(line)
	if len(runes) <= maxLen {
		return line
	}
	return string(runes[:maxLen])
}
