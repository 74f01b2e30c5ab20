package http

import (
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseLimit reads ?limit=, clamped to [1, max].
func parseLimit(r *http.Request, def, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// reportURL builds the public URL of a report file. Without a configured base
// URL it is derived from the request host.
func reportURL(r *http.Request, baseURL, name string) string {
	if name == "" {
		return ""
	}
	p := path.Join("/reports", url.PathEscape(name))
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + p
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + p
}
