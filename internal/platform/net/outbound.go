// SPDX-License-Identifier: MIT

// Package net validates outbound fetch targets. Search results point at
// arbitrary hosts, so every page fetch is checked against an SSRF policy
// before the client dials.
package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var (
	// ErrFetchNotAllowed indicates the URL resolved to a blocked address.
	ErrFetchNotAllowed = errors.New("fetch target not allowed")
)

// FetchPolicy defines which fetch targets are acceptable.
type FetchPolicy struct {
	// AllowPrivateHosts permits loopback and RFC 1918 / ULA targets.
	// Off in production, on in tests against httptest servers.
	AllowPrivateHosts bool
	// Schemes defaults to http and https when empty.
	Schemes []string
}

func (p FetchPolicy) schemes() []string {
	if len(p.Schemes) == 0 {
		return []string{"http", "https"}
	}
	return p.Schemes
}

// NormalizeHost validates and normalizes a bare host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	}
	if strings.Contains(host, "/") {
		return "", fmt.Errorf("host must not include path: %s", raw)
	}
	if strings.Contains(host, "@") {
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// ValidateFetchURL verifies a URL against the fetch policy. It returns the
// URL with a normalized host on success.
func ValidateFetchURL(ctx context.Context, raw string, policy FetchPolicy) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("fetch url empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("missing url scheme")
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing url host")
	}
	if u.User != nil {
		return "", fmt.Errorf("userinfo not allowed")
	}

	scheme := strings.ToLower(u.Scheme)
	if !schemeAllowed(policy.schemes(), scheme) {
		return "", fmt.Errorf("scheme %q not allowed: %w", scheme, ErrFetchNotAllowed)
	}

	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return "", err
	}

	ips, err := resolveHostIPs(ctx, host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if reason := blockedReason(ip, policy.AllowPrivateHosts); reason != "" {
			return "", fmt.Errorf("%s address %s: %w", reason, ip.String(), ErrFetchNotAllowed)
		}
	}

	u.Host = joinHostPort(host, u.Port())
	return u.String(), nil
}

func schemeAllowed(allowed []string, scheme string) bool {
	for _, s := range allowed {
		if strings.EqualFold(strings.TrimSpace(s), scheme) {
			return true
		}
	}
	return false
}

func resolveHostIPs(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve host %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve host %q: no addresses", host)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IP != nil {
			ips = append(ips, addr.IP)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve host %q: no valid addresses", host)
	}
	return ips, nil
}

// blockedReason returns a non-empty label when the IP must not be dialed.
func blockedReason(ip net.IP, allowPrivate bool) string {
	if ip == nil {
		return "invalid"
	}
	switch {
	case ip.IsUnspecified():
		return "unspecified"
	case ip.IsMulticast(), ip.IsLinkLocalMulticast():
		return "multicast"
	case ip.IsLinkLocalUnicast():
		return "link-local"
	case ip.IsLoopback():
		if !allowPrivate {
			return "loopback"
		}
	case ip.IsPrivate():
		if !allowPrivate {
			return "private"
		}
	}
	return ""
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
