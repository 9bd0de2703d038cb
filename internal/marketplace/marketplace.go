// Package marketplace recognizes the e-commerce sites whose product pages
// can be estimated.
package marketplace

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// ID identifies a supported marketplace.
type ID string

const (
	Amazon    ID = "amazon"
	Cdiscount ID = "cdiscount"
)

const (
	amazonHostPrefix = "www.amazon."
	cdiscountHost    = "www.cdiscount.com"
)

// Detect returns the marketplace serving rawURL.
func Detect(rawURL string) (ID, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.HasPrefix(host, amazonHostPrefix):
		return Amazon, true
	case host == cdiscountHost:
		return Cdiscount, true
	default:
		return "", false
	}
}

// CleanURL strips the query string and fragment from a product URL so the
// same page always maps to the same key.
func CleanURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", eris.Wrapf(err, "marketplace: parse url %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("marketplace: not an absolute url %q", rawURL)
	}
	clean := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return clean.String(), nil
}
