// Package status redacts infrastructure details from report failure messages
// before they are returned to pollers.
package status

import (
	"regexp"
)

// Sanitizer removes credentials and internal addresses from error messages.
type Sanitizer struct {
	sensitivePatterns []*sensitivePattern
}

// sensitivePattern represents a pattern for sensitive information
type sensitivePattern struct {
	pattern     *regexp.Regexp
	replacement string
	description string
}

// NewSanitizer creates a Sanitizer with the default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{sensitivePatterns: buildDefaultSensitivePatterns()}
}

// buildDefaultSensitivePatterns builds the default patterns, applied in order.
func buildDefaultSensitivePatterns() []*sensitivePattern {
	return []*sensitivePattern{
		// go-sql-driver DSN: user:password@tcp(host:port)/database
		{
			pattern:     regexp.MustCompile(`[^\s:@/]+:[^\s@]*@(?:tcp|unix)\([^)]*\)(?:/[^\s?]*)?(?:\?\S*)?`),
			replacement: "[dsn]",
			description: "MySQL DSN",
		},

		// URLs with credentials
		{
			pattern:     regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^:/\s]+:[^@\s]+@[^\s/]+`),
			replacement: "[credential-url]",
			description: "URL with credentials",
		},

		// key=value secrets
		{
			pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_-]?key)=\S+`),
			replacement: "$1=[redacted]",
			description: "inline secret",
		},

		// Internal IPs, with optional port
		{
			pattern:     regexp.MustCompile(`\b10\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d+)?\b`),
			replacement: "[internal-ip]",
			description: "10.x.x.x IP",
		},
		{
			pattern:     regexp.MustCompile(`\b172\.(?:1[6-9]|2[0-9]|3[0-1])\.\d{1,3}\.\d{1,3}(?::\d+)?\b`),
			replacement: "[internal-ip]",
			description: "172.16-31.x.x IP",
		},
		{
			pattern:     regexp.MustCompile(`\b192\.168\.\d{1,3}\.\d{1,3}(?::\d+)?\b`),
			replacement: "[internal-ip]",
			description: "192.168.x.x IP",
		},
	}
}

// SanitizeSensitiveInfo redacts every sensitive pattern found in message.
func (s *Sanitizer) SanitizeSensitiveInfo(message string) string {
	if message == "" {
		return message
	}

	result := message
	for _, sp := range s.sensitivePatterns {
		result = sp.pattern.ReplaceAllString(result, sp.replacement)
	}
	return result
}

// AddSensitivePattern adds a custom sensitive pattern for redaction.
func (s *Sanitizer) AddSensitivePattern(pattern *regexp.Regexp, replacement, description string) {
	s.sensitivePatterns = append(s.sensitivePatterns, &sensitivePattern{
		pattern:     pattern,
		replacement: replacement,
		description: description,
	})
}

var defaultSanitizer = NewSanitizer()

// SanitizeMessage redacts message with the default patterns.
func SanitizeMessage(message string) string {
	return defaultSanitizer.SanitizeSensitiveInfo(message)
}
