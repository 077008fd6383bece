package utils

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

var ErrInvalidDomain = errors.New("invalid domain")

// NormalizeDomain folds a user-supplied domain (possibly pasted as a full
// URL) to a lowercase ASCII host suitable for watchlist storage.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDomain
	}

	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", ErrInvalidDomain
		}
		raw = parsed.Hostname()
	}
	if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSuffix(strings.ToLower(raw), ".")

	host, err := idna.ToASCII(raw)
	if err != nil {
		return "", ErrInvalidDomain
	}
	if !domainRegex.MatchString(host) {
		return "", ErrInvalidDomain
	}
	return host, nil
}
