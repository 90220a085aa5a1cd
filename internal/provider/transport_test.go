// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPTransportRoundTrip(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": {"content": "hi"}}`))
	}))
	defer server.Close()

	send := NewHTTPTransport()
	result := send(&TransportRequest{
		URL:     server.URL + "/api/chat",
		Method:  http.MethodPost,
		Body:    []byte(`{"model":"m"}`),
		Headers: map[string]string{"Authorization": "Bearer k"},
		Timeout: 5 * time.Second,
	})

	if !result.OK() {
		t.Fatalf("result = %+v", result)
	}
	if gotAuth != "Bearer k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody != `{"model":"m"}` {
		t.Errorf("body = %q", gotBody)
	}
	if string(result.Body) != `{"message": {"content": "hi"}}` {
		t.Errorf("response body = %q", result.Body)
	}
}

func TestHTTPTransportErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := NewHTTPTransport()(&TransportRequest{
		URL:    server.URL,
		Method: http.MethodGet,
	})

	// An HTTP error status is not a transport error.
	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", result.StatusCode)
	}
	if result.OK() {
		t.Error("503 must not classify as OK")
	}
}

func TestHTTPTransportRejectsBadScheme(t *testing.T) {
	result := NewHTTPTransport()(&TransportRequest{
		URL:    "file:///etc/passwd",
		Method: http.MethodGet,
	})
	if result.Err == nil {
		t.Fatal("file scheme must be rejected before dialing")
	}
}

func TestHTTPTransportConnectFailure(t *testing.T) {
	// Reserved port with nothing listening.
	result := NewHTTPTransport()(&TransportRequest{
		URL:     "http://127.0.0.1:1",
		Method:  http.MethodGet,
		Timeout: time.Second,
	})
	if result.Err == nil {
		t.Fatal("connection refusal must surface as a transport error")
	}
	if result.OK() {
		t.Error("failed call must not classify as OK")
	}
}

func TestTransportResultOK(t *testing.T) {
	tests := []struct {
		result TransportResult
		want   bool
	}{
		{TransportResult{StatusCode: 200}, true},
		{TransportResult{StatusCode: 299}, true},
		{TransportResult{StatusCode: 300}, false},
		{TransportResult{StatusCode: 404}, false},
		{TransportResult{StatusCode: 500}, false},
		{TransportResult{StatusCode: 200, Err: http.ErrHandlerTimeout}, false},
	}
	for _, tt := range tests {
		if got := tt.result.OK(); got != tt.want {
			t.Errorf("OK(%+v) = %v, want %v", tt.result, got, tt.want)
		}
	}
}

func TestLimiterExempt(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://127.0.0.1:11434/api/chat", true},
		{"http://localhost:8080/api/chat", true},
		{"http://[::1]:11434/api/chat", true},
		{"https://ollama.com/api/chat", false},
		{"https://localhost.evil.com/api/chat", false},
		{"://not-a-url", false},
	}

	for _, tt := range tests {
		if got := limiterExempt(tt.url); got != tt.want {
			t.Errorf("limiterExempt(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
