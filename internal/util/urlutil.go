// Package util holds small helpers shared across vidtrack packages.
package util

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme sets accepted by ParseEndpoint.
var (
	ChannelSchemes = []string{"ws", "wss"}
	UploadSchemes  = []string{"http", "https"}
)

// ParseEndpoint parses raw and checks that it is absolute, has a host and
// uses one of schemes (case-insensitive). The returned URL has a lowercase
// scheme.
func ParseEndpoint(raw string, schemes ...string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	for _, s := range schemes {
		if u.Scheme == s {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unsupported URL %q: scheme must be %s", raw, strings.Join(schemes, " or "))
}
