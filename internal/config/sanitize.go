package config

import "strings"

// Sanitize returns a copy of cfg with secrets masked for display.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	if sanitized.Security.Secret != "" {
		sanitized.Security.Secret = maskSecret(sanitized.Security.Secret)
	}
	if sanitized.Security.Salt != "" {
		sanitized.Security.Salt = maskSecret(sanitized.Security.Salt)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
