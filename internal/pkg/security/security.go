// Package security masks credentials before they reach logs or the terminal.
package security

import (
	"regexp"
	"strings"
)

// apiKeyFormat holds the expected key shape per hosted provider.
var apiKeyFormat = map[string]*regexp.Regexp{
	"gemini": regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
	"openai": regexp.MustCompile(`^sk-[a-zA-Z0-9_-]{20,}$`),
}

// MaskAPIKey masks an API key, showing only the last 4 characters.
// An empty key renders as "(not set)".
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// LooksLikeAPIKey reports whether key has the usual shape for provider.
// Providers without a known shape always pass.
func LooksLikeAPIKey(provider, key string) bool {
	pattern, ok := apiKeyFormat[provider]
	if !ok {
		return true
	}
	return pattern.MatchString(key)
}

var sanitizePatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), "sk-****"},
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{30,}`), "AIza****"},
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`), "Bearer ****"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|x-goog-api-key)\s*[:=]\s*["']?[a-zA-Z0-9._-]+["']?`), "$1=****"},
}

// SanitizeForLogging masks API keys, bearer tokens and key assignments in s.
func SanitizeForLogging(s string) string {
	for _, p := range sanitizePatterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RemoteNotice is shown when a hosted provider is selected.
const RemoteNotice = "Hosted providers receive your filtered staged diff. Do not stage secrets, or use the local ollama provider for private code."
