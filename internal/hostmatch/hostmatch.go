// Package hostmatch classifies and matches hostnames for the transport
// security gate and the pinning policy resolver.
package hostmatch

import (
	"net"
	"strings"
)

// IsLocal reports whether host is a loopback or private-network address.
// These hosts are exempt from HTTPS enforcement and pinning in development
// mode. Both literals ("localhost") and private IP ranges are recognized.
func IsLocal(host string) bool {
	h := Normalize(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// Normalize lowercases a hostname and strips a trailing dot so lookups are
// case-insensitive and FQDN-insensitive.
func Normalize(host string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
}

// Matches reports whether host matches pattern. A pattern is either an exact
// hostname or a leading-wildcard form "*.suffix", which matches the suffix
// itself and any subdomain of it. Matching is case-insensitive.
func Matches(host, pattern string) bool {
	h := Normalize(host)
	p := Normalize(pattern)
	if !strings.HasPrefix(p, "*.") {
		return h == p
	}
	suffix := strings.TrimPrefix(p, "*.")
	return h == suffix || strings.HasSuffix(h, "."+suffix)
}
