// Package siteurl resolves market hints and relative paths against the
// target store. All functions fail open: unrecognized input falls back to
// the default origin rather than returning an error.
package siteurl

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultOrigin is the store crawled when no location hint is given.
	DefaultOrigin = "https://www.shoplandia.com"

	siteDomain = "shoplandia.com"

	// ProductPathPrefix marks product detail pages, e.g. /pr/red-widget/5512.
	ProductPathPrefix = "/pr/"
)

// Origin resolves a free-form location hint to an absolute origin
// (scheme + host, no trailing slash).
//
// Accepted hints: empty string, a full URL, a two-letter market token
// ("de" -> https://de.shoplandia.com), or a bare hostname containing a dot.
func Origin(location string) string {
	location = strings.TrimSpace(strings.ToLower(location))
	if location == "" {
		return DefaultOrigin
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		parsed, err := url.Parse(location)
		if err != nil || parsed.Host == "" {
			return DefaultOrigin
		}
		return strings.TrimRight(parsed.Scheme+"://"+parsed.Host, "/")
	}

	if len(location) == 2 && isAlpha(location) {
		return fmt.Sprintf("https://%s.%s", location, siteDomain)
	}

	if strings.Contains(location, ".") && !strings.ContainsAny(location, " /") {
		return "https://" + location
	}

	return DefaultOrigin
}

// Absolute joins path to origin unless path is already absolute.
func Absolute(origin, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return origin
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		return "https:" + path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(origin, "/") + path
}

// IsProductPath reports whether raw points at a product detail page.
func IsProductPath(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return false
		}
		raw = parsed.Path
	}
	return strings.Contains(raw, ProductPathPrefix)
}

// DetailURL builds an absolute product detail URL from a slug and id.
// Either part may be empty; both empty yields "".
func DetailURL(origin, slug, id string) string {
	slug = strings.TrimSpace(slug)
	id = strings.TrimSpace(id)
	if slug == "" && id == "" {
		return ""
	}
	path := ProductPathPrefix
	switch {
	case slug != "" && id != "":
		path += slug + "/" + id
	case id != "":
		path += id
	default:
		path += slug
	}
	return Absolute(origin, path)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
