// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/daemon-codex/internal/netguard"
)

// =============================================================================
// INJECTABLE TRANSPORT
// =============================================================================

// TransportRequest is one wire call to a self-hosted endpoint.
type TransportRequest struct {
	URL     string
	Method  string
	Body    []byte
	Headers map[string]string
	Timeout time.Duration
}

// TransportResult is the outcome of one wire call. Err is set only for
// transport-level failures (connect, timeout); an HTTP error status is
// reported through StatusCode with Err nil.
type TransportResult struct {
	StatusCode int
	Body       []byte
	Err        error
}

// OK reports wire-level success: a 2xx status with no transport error.
func (r *TransportResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// TransportFunc executes one wire call. The self-hosted provider takes
// one at construction so tests can substitute a fake; the production
// implementation is NewHTTPTransport.
type TransportFunc func(req *TransportRequest) *TransportResult

// =============================================================================
// PRODUCTION TRANSPORT
// =============================================================================

// NewHTTPTransport returns the production transport. It validates the
// endpoint before dialing and rate-limits outbound calls so a retry
// storm cannot hammer a shared endpoint. Loopback endpoints are exempt
// from the limiter: a server on this machine is the caller's own.
func NewHTTPTransport() TransportFunc {
	// 5 req/s sustained with small bursts is generous for a single
	// interactive client.
	limiter := rate.NewLimiter(rate.Limit(5), 10)

	return func(req *TransportRequest) *TransportResult {
		if err := netguard.ValidateEndpoint(req.URL); err != nil {
			return &TransportResult{Err: err}
		}

		ctx := context.Background()
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}

		if !limiterExempt(req.URL) {
			if err := limiter.Wait(ctx); err != nil {
				return &TransportResult{Err: err}
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return &TransportResult{Err: err}
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			return &TransportResult{Err: err}
		}
		defer resp.Body.Close()

		// SECURITY: Bound the response read to prevent memory exhaustion.
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return &TransportResult{Err: err}
		}

		return &TransportResult{StatusCode: resp.StatusCode, Body: body}
	}
}

// limiterExempt reports whether the target host is this machine, in
// which case client-side throttling only adds latency.
func limiterExempt(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return netguard.IsLoopback(parsed.Host)
}
