package http

import (
	"errors"
	"net/url"
	"strings"
)

// ErrBadURL reports an address that cannot be opened
var ErrBadURL = errors.New("invalid url")

var passthroughSchemes = []string{"about:", "data:", "file:", "chrome:"}

// NormalizeURL turns user input into a navigable address. Input without a
// scheme is treated as an https host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrBadURL
	}
	lower := strings.ToLower(s)
	for _, scheme := range passthroughSchemes {
		if strings.HasPrefix(lower, scheme) {
			return s, nil
		}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", ErrBadURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrBadURL
	}
	return u.String(), nil
}
