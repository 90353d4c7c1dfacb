package services

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const faviconService = "https://www.google.com/s2/favicons"

// DeriveIconURL returns a favicon URL for the registrable domain of
// siteURL, or "" when no domain can be determined.
func DeriveIconURL(siteURL string) string {
	raw := strings.TrimSpace(siteURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}

	q := url.Values{}
	q.Set("domain", domain)
	q.Set("sz", "64")
	return faviconService + "?" + q.Encode()
}
