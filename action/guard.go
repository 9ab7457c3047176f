package action

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks a tenant-configured webhook target before any
// network call is made. The scheme must be http or https, and the hostname
// must not resolve to loopback or private ranges (10.0.0.0/8, 172.16.0.0/12,
// 192.168.0.0/16, localhost, 127.0.0.1, ::1) — a tenant must not be able to
// point the engine at internal infrastructure. Rejections carry a descriptive
// reason; they are never silent.
//
// allowPrivate disables the host checks for local development and tests.
func ValidateWebhookURL(raw string, allowPrivate bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url %q: %v", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url %q: scheme must be http or https", raw)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("webhook url %q: missing host", raw)
	}

	if allowPrivate {
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("webhook url %q: localhost is not allowed", raw)
	}

	// Literal IP: check directly. Hostname: check every resolved address so a
	// DNS name pointing at an internal range is caught too.
	if ip := net.ParseIP(host); ip != nil {
		if blocked(ip) {
			return fmt.Errorf("webhook url %q: address %s is in a blocked range", raw, ip)
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("webhook url %q: resolve host: %v", raw, err)
	}
	for _, ip := range ips {
		if blocked(ip) {
			return fmt.Errorf("webhook url %q: host resolves to blocked address %s", raw, ip)
		}
	}

	return nil
}

// blocked reports whether an address is loopback, RFC 1918 private,
// link-local, or unspecified.
func blocked(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
