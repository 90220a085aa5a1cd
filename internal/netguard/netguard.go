// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netguard

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidScheme is returned for any URL scheme other than http or
	// https. Blocks file://, javascript://, data:// and custom handlers.
	ErrInvalidScheme = errors.New("only http and https schemes are allowed")

	// ErrMissingHost is returned when a URL parses but has no host.
	ErrMissingHost = errors.New("endpoint URL has no host")

	// ErrUnparsableURL is returned when a URL cannot be parsed at all.
	ErrUnparsableURL = errors.New("endpoint URL is not parsable")
)

// =============================================================================
// ENDPOINT VALIDATION
// =============================================================================

// ValidateEndpoint checks that a provider base URL is safe to dial.
// Scheme validation is always performed: a misconfigured endpoint must
// never cause the client to open a file or run a protocol handler.
func ValidateEndpoint(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrUnparsableURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidScheme
	}

	if parsed.Hostname() == "" {
		return ErrMissingHost
	}

	return nil
}

// IsLoopback reports whether a host string refers to the local machine.
// Accepts "localhost", any 127.0.0.0/8 address, and every IPv6 loopback
// representation. A port suffix and IPv6 brackets are stripped first.
func IsLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	host = strings.ToLower(host)

	if host == "localhost" {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
