package logging

import (
	"regexp"
)

const (
	// MaxPromptLogLength is the maximum length of prompt text to log
	MaxPromptLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match bearer tokens, JWT or opaque
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9-_.]+`)

	// Pattern to match potential API keys in key=value form
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key|token)=[A-Za-z0-9-_]{20,}`)

	// Pattern to match provider secret keys (sk-..., anthropic-style and openai-style)
	secretKeyPattern = regexp.MustCompile(`sk-(?:ant-)?[A-Za-z0-9-_]{16,}`)

	// Pattern to match credentials embedded in URLs (user:pass@host)
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeError strips credentials from error text before logging. Provider
// SDK errors can echo request headers and endpoint URLs, so every error that
// crossed a network boundary goes through here first.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText strips credential patterns from an arbitrary string.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	sanitized := bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizePrompt truncates prompt text for logging and redacts anything that
// looks like a credential a user may have pasted into chat.
func SanitizePrompt(prompt string) string {
	if prompt == "" {
		return ""
	}
	return SanitizeText(TruncateString(prompt, MaxPromptLogLength))
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
