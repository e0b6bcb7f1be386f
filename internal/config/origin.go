package config

import (
	"fmt"
	"net/url"
	"strings"
)

// SanitizeTrustedDomain normalizes one entry of the trusted-origins list
// down to a lowercase host, keeping an explicit port when present. Schemes
// and a lone trailing slash are stripped; anything beyond the host, and
// wildcards, fail validation.
func SanitizeTrustedDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	if domain == "" {
		return "", fmt.Errorf("domain cannot be empty")
	}

	for _, scheme := range []string{"http://", "https://"} {
		domain = strings.TrimPrefix(domain, scheme)
	}
	domain = strings.TrimSuffix(domain, "/")

	if strings.ContainsAny(domain, " \t\r\n") {
		return "", fmt.Errorf("domain cannot contain whitespace")
	}
	if strings.Contains(domain, "*") {
		return "", fmt.Errorf("wildcards are not allowed in trusted origins")
	}

	// Parse with a throwaway scheme so url.Parse treats the value as an
	// authority rather than an opaque path.
	u, err := url.Parse("http://" + domain)
	if err != nil {
		return "", fmt.Errorf("invalid domain format")
	}
	if u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("domain must not include path, query, or fragment")
	}

	return u.Host, nil
}
