// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// fakeTransport counts attempts and replays canned results.
type fakeTransport struct {
	results  []*TransportResult
	attempts int
	lastReq  *TransportRequest
}

func (f *fakeTransport) send(req *TransportRequest) *TransportResult {
	f.lastReq = req
	i := f.attempts
	f.attempts++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]
}

func okJSON(body string) *TransportResult {
	return &TransportResult{StatusCode: 200, Body: []byte(body)}
}

func testCloudProvider(ft *fakeTransport) *OllamaCloudProvider {
	return NewOllamaCloudProvider(OllamaCloudConfig{
		BaseURL: "https://ollama.example",
		APIKey:  "key-123",
		Model:   "qwen3-coder",
	}, ft.send)
}

// fastRequest keeps retry sleeps negligible in tests.
func fastRequest(level llm.PrivacyLevel, maxRetries int) *llm.Request {
	req := llm.NewRequest("hello")
	req.PrivacyLevel = level
	req.MaxRetries = maxRetries
	req.BackoffBase = time.Millisecond
	return req
}

func TestOllamaCloudIdentity(t *testing.T) {
	p := testCloudProvider(&fakeTransport{results: []*TransportResult{okJSON(`{}`)}})

	if p.ID() != "ollama_cloud" {
		t.Errorf("ID = %q", p.ID())
	}
	if !p.RequiresNetwork() {
		t.Error("self-hosted provider must require network")
	}
	if !p.Capabilities().Has(llm.CapRemoteInference) {
		t.Error("self-hosted provider must declare RemoteInference")
	}
}

func TestOllamaCloudChatSuccess(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{
		okJSON(`{"message": {"content": "Documents : Invoices"}, "prompt_eval_count": 12, "eval_count": 5}`),
	}}
	p := testCloudProvider(ft)

	resp := p.Chat(fastRequest(llm.PrivacyMetadataOnly, 3))
	if !resp.Success {
		t.Fatalf("chat failed: %s", resp.ErrorMessage)
	}
	if resp.Text != "Documents : Invoices" {
		t.Errorf("Text = %q", resp.Text)
	}
	if !resp.UsedRemote {
		t.Error("UsedRemote should be true")
	}
	if resp.Usage.Prompt != 12 || resp.Usage.Completion != 5 || resp.Usage.Total != 17 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if ft.attempts != 1 {
		t.Errorf("attempts = %d, want 1", ft.attempts)
	}
}

func TestOllamaCloudPayloadShape(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{"message": {"content": "x"}}`)}}
	p := testCloudProvider(ft)

	req := fastRequest(llm.PrivacyMetadataOnly, 0)
	req.MaxTokens = 256
	req.Temperature = 0.7
	p.Chat(req)

	if !strings.HasSuffix(ft.lastReq.URL, "/api/chat") {
		t.Errorf("URL = %q, want /api/chat endpoint", ft.lastReq.URL)
	}
	if ft.lastReq.Method != "POST" {
		t.Errorf("Method = %q", ft.lastReq.Method)
	}
	if got := ft.lastReq.Headers["Authorization"]; got != "Bearer key-123" {
		t.Errorf("Authorization = %q", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(ft.lastReq.Body, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["model"] != "qwen3-coder" {
		t.Errorf("model = %v", payload["model"])
	}
	if payload["stream"] != false {
		t.Errorf("stream = %v, must be false", payload["stream"])
	}
	opts, ok := payload["options"].(map[string]any)
	if !ok {
		t.Fatal("options missing from payload")
	}
	if opts["num_predict"] != float64(256) {
		t.Errorf("num_predict = %v", opts["num_predict"])
	}
	if opts["temperature"] != 0.7 {
		t.Errorf("temperature = %v", opts["temperature"])
	}
	msgs, ok := payload["messages"].([]any)
	if !ok || len(msgs) == 0 {
		t.Fatal("messages missing from payload")
	}
}

func TestOllamaCloudNoAPIKeyOmitsBearer(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{"message": {"content": "x"}}`)}}
	p := NewOllamaCloudProvider(OllamaCloudConfig{
		BaseURL: "https://ollama.example",
		Model:   "qwen3-coder",
	}, ft.send)

	p.Chat(fastRequest(llm.PrivacyMetadataOnly, 0))
	if _, present := ft.lastReq.Headers["Authorization"]; present {
		t.Error("Authorization header must be absent without an API key")
	}
}

func TestOllamaCloudParsePriority(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantCode int
	}{
		{"message content wins", `{"message": {"content": "from message"}, "response": "from response"}`, "from message", 0},
		{"top-level response fallback", `{"response": "from response"}`, "from response", 0},
		{"top-level error", `{"error": "model not loaded"}`, "", llm.ErrCodeClientFailure},
		{"empty object", `{}`, "", llm.ErrCodeParseFailure},
		{"not json", `<html>boom</html>`, "", llm.ErrCodeParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{results: []*TransportResult{okJSON(tt.body)}}
			resp := testCloudProvider(ft).Chat(fastRequest(llm.PrivacyMetadataOnly, 0))

			if tt.wantCode == 0 {
				if !resp.Success || resp.Text != tt.wantText {
					t.Errorf("resp = success=%v text=%q, want %q", resp.Success, resp.Text, tt.wantText)
				}
				return
			}
			if resp.Success || resp.ErrorCode != tt.wantCode {
				t.Errorf("resp = success=%v code=%d, want code %d", resp.Success, resp.ErrorCode, tt.wantCode)
			}
		})
	}
}

func TestOllamaCloudUnexpectedFormatMessage(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{}`)}}
	resp := testCloudProvider(ft).Chat(fastRequest(llm.PrivacyMetadataOnly, 0))

	if resp.ErrorMessage != "unexpected response format" {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}
}

func TestOllamaCloudRetryOn5xx(t *testing.T) {
	const maxRetries = 3
	ft := &fakeTransport{results: []*TransportResult{
		{StatusCode: 503, Body: []byte(`{"error": "overloaded"}`)},
	}}
	p := testCloudProvider(ft)

	resp := p.Chat(fastRequest(llm.PrivacyMetadataOnly, maxRetries))
	if resp.Success {
		t.Fatal("chat should fail after exhausting retries")
	}
	// N retries means N+1 total attempts.
	if ft.attempts != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", ft.attempts, maxRetries+1)
	}
	if resp.ErrorCode != llm.ErrCodeClientFailure {
		t.Errorf("ErrorCode = %d, want 2", resp.ErrorCode)
	}
}

func TestOllamaCloudNoRetryOn4xx(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{
		{StatusCode: 404, Body: []byte(`{"error": "model not found"}`)},
	}}
	p := testCloudProvider(ft)

	resp := p.Chat(fastRequest(llm.PrivacyMetadataOnly, 3))
	if resp.Success {
		t.Fatal("chat should fail on 404")
	}
	if ft.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is terminal)", ft.attempts)
	}
	if !strings.Contains(resp.ErrorMessage, "404") {
		t.Errorf("ErrorMessage = %q should carry the status", resp.ErrorMessage)
	}
}

func TestOllamaCloudRecoversMidRetry(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{
		{StatusCode: 500, Body: nil},
		okJSON(`{"message": {"content": "recovered"}}`),
	}}
	p := testCloudProvider(ft)

	resp := p.Chat(fastRequest(llm.PrivacyMetadataOnly, 3))
	if !resp.Success || resp.Text != "recovered" {
		t.Fatalf("resp = success=%v text=%q", resp.Success, resp.Text)
	}
	if ft.attempts != 2 {
		t.Errorf("attempts = %d, want 2", ft.attempts)
	}
}

func TestOllamaCloudPrivacyBlocks(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{"message": {"content": "x"}}`)}}
	p := testCloudProvider(ft)

	resp := p.Chat(fastRequest(llm.PrivacyLocalOnly, 3))
	if resp.Success || resp.ErrorCode != llm.ErrCodePrivacyBlocked {
		t.Errorf("LocalOnly resp = success=%v code=%d, want 403", resp.Success, resp.ErrorCode)
	}

	noConsent := fastRequest(llm.PrivacyFullContent, 3)
	resp = p.Chat(noConsent)
	if resp.Success || resp.ErrorCode != llm.ErrCodePrivacyBlocked {
		t.Errorf("FullContent resp = success=%v code=%d, want 403", resp.Success, resp.ErrorCode)
	}

	if ft.attempts != 0 {
		t.Error("transport must never run for blocked requests")
	}
}

func TestOllamaCloudUnconfigured(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{}`)}}
	p := NewOllamaCloudProvider(OllamaCloudConfig{}, ft.send)

	resp := p.Chat(fastRequest(llm.PrivacyMetadataOnly, 3))
	if resp.Success || resp.ErrorCode != llm.ErrCodeNotConfigured {
		t.Errorf("resp = success=%v code=%d, want code 1", resp.Success, resp.ErrorCode)
	}
	if ft.attempts != 0 {
		t.Error("no network attempt may happen when unconfigured")
	}
}

func TestOllamaCloudHealthCheck(t *testing.T) {
	if got := NewOllamaCloudProvider(OllamaCloudConfig{}, nil).HealthCheck(); got != llm.HealthNotConfigured {
		t.Errorf("unconfigured health = %v", got)
	}

	ft := &fakeTransport{results: []*TransportResult{{StatusCode: 200, Body: []byte(`{"version": "0.5.0"}`)}}}
	p := testCloudProvider(ft)
	if got := p.HealthCheck(); got != llm.HealthHealthy {
		t.Errorf("healthy endpoint health = %v", got)
	}
	if !strings.HasSuffix(ft.lastReq.URL, "/api/version") {
		t.Errorf("health URL = %q", ft.lastReq.URL)
	}
	if ft.lastReq.Method != "GET" {
		t.Errorf("health method = %q", ft.lastReq.Method)
	}
	if ft.lastReq.Timeout != 5*time.Second {
		t.Errorf("health timeout = %v, want 5s", ft.lastReq.Timeout)
	}

	down := &fakeTransport{results: []*TransportResult{{StatusCode: 500}}}
	if got := testCloudProvider(down).HealthCheck(); got != llm.HealthUnavailable {
		t.Errorf("failing endpoint health = %v", got)
	}
}

func TestOllamaCloudListModels(t *testing.T) {
	p := testCloudProvider(&fakeTransport{results: []*TransportResult{okJSON(`{}`)}})

	models := p.ListModels()
	if len(models) != 1 {
		t.Fatalf("models = %d, want 1 placeholder entry", len(models))
	}
	if models[0].ID != "qwen3-coder" || !models[0].Available {
		t.Errorf("model = %+v", models[0])
	}
}

func TestOllamaCloudCategorize(t *testing.T) {
	ft := &fakeTransport{results: []*TransportResult{okJSON(`{"message": {"content": "Documents : Invoices"}}`)}}
	p := testCloudProvider(ft)

	base := fastRequest(llm.PrivacyMetadataOnly, 0)
	resp := p.Categorize("invoice.pdf", "/home/u/secret/invoice.pdf", false, "tax documents -> Documents : Taxes", base)
	if !resp.Success || resp.Text != "Documents : Invoices" {
		t.Fatalf("resp = success=%v text=%q", resp.Success, resp.Text)
	}

	body := string(ft.lastReq.Body)
	if !strings.Contains(body, "Category : Subcategory") {
		t.Error("system prompt should demand the two-part format")
	}
	if !strings.Contains(body, "invoice.pdf") {
		t.Error("user prompt should carry the item name")
	}
	// MetadataOnly without consent: the path must not appear anywhere.
	if strings.Contains(body, "/home/u/secret") {
		t.Error("path leaked into the wire payload under MetadataOnly")
	}
	if !strings.Contains(body, "tax documents") {
		t.Error("consistency context should be included")
	}
}
