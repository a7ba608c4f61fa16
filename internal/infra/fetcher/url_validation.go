package fetcher

import (
	"fmt"
	"net"
	"net/url"
)

// validateURL validates a URL for security before making an HTTP request.
// It prevents SSRF by allowing only http/https and, when denyPrivateIPs is
// set, resolving the hostname and rejecting loopback/private/link-local
// targets (RFC 1918, RFC 4193, RFC 3927, RFC 4291).
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return newFetchError(FetchErrorInvalidURL, urlStr, fmt.Errorf("parse: %w", err))
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return newFetchError(FetchErrorInvalidURL, urlStr, fmt.Errorf("scheme %q not allowed", u.Scheme))
	}

	hostname := u.Hostname()
	if hostname == "" {
		return newFetchError(FetchErrorInvalidURL, urlStr, fmt.Errorf("empty hostname"))
	}

	if !denyPrivateIPs {
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return newFetchError(FetchErrorDNS, urlStr, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return newFetchError(FetchErrorInvalidURL, urlStr, fmt.Errorf("hostname %q resolves to private IP %s", hostname, ip))
		}
	}

	return nil
}

// isPrivateIP reports whether ip is loopback, RFC 1918/4193 private, or
// link-local (IPv4 or IPv6).
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
