package util

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped from apply links so the same posting yields the
// same canonical URL across polls.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"ref", "src", "source", "gh_src", "lever-source",
}

// redirectParams name query parameters that wrap the real destination on
// redirector front doors.
var redirectParams = []string{"u", "url", "redirect"}

// NormalizeApplyURL canonicalizes an application link: requires an http(s)
// scheme, unwraps single-level redirect wrappers, and strips tracking
// parameters. Returns an error for links that cannot serve as an apply URL.
func NormalizeApplyURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid apply URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported apply URL scheme %q", parsed.Scheme)
	}

	query := parsed.Query()

	// Unwrap redirectors that carry the destination in a query parameter.
	for _, p := range redirectParams {
		if inner := query.Get(p); strings.HasPrefix(inner, "http://") || strings.HasPrefix(inner, "https://") {
			return NormalizeApplyURL(inner)
		}
	}

	for _, p := range trackingParams {
		query.Del(p)
	}
	parsed.RawQuery = query.Encode()

	if len(parsed.Path) > 1 && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}
	return parsed.String(), nil
}
