package downloader

import (
	"net/url"
	"strings"
)

// ValidateURL rejects empty, unparseable and non-http(s) URLs before the
// extractor is ever invoked.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalidInputf("no URL provided")
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return invalidInputf("invalid URL: %v", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return invalidInputf("invalid URL: only http and https are supported")
	}
	if parsed.Host == "" {
		return invalidInputf("invalid URL: missing host")
	}
	return nil
}
