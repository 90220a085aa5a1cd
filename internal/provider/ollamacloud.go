// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// OLLAMA CLOUD PROVIDER
// =============================================================================

// OllamaCloudID is the registry identity of the self-hosted remote
// provider.
const OllamaCloudID = "ollama_cloud"

// healthTimeout bounds the version probe; health checks must stay cheap.
const healthTimeout = 5 * time.Second

// OllamaCloudConfig configures the self-hosted remote provider.
type OllamaCloudConfig struct {
	BaseURL string
	// APIKey is optional; when present it is sent as a bearer token.
	APIKey string
	Model  string
	// Timeout applies when the request carries none.
	Timeout time.Duration
}

// OllamaCloudProvider serves inference from a self-hosted Ollama
// endpoint through an injectable transport, retrying transient failures
// with exponential backoff.
type OllamaCloudProvider struct {
	cfg       OllamaCloudConfig
	transport TransportFunc
}

// NewOllamaCloudProvider builds the self-hosted remote provider. A nil
// transport gets the production HTTP transport; tests inject a fake.
func NewOllamaCloudProvider(cfg OllamaCloudConfig, transport TransportFunc) *OllamaCloudProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.DefaultTimeout
	}
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &OllamaCloudProvider{cfg: cfg, transport: transport}
}

func (p *OllamaCloudProvider) ID() string          { return OllamaCloudID }
func (p *OllamaCloudProvider) DisplayName() string { return "Ollama Cloud" }

func (p *OllamaCloudProvider) Capabilities() llm.Capability {
	return llm.CapRemoteInference | llm.CapStreaming | llm.CapEmbeddings
}

func (p *OllamaCloudProvider) RequiresNetwork() bool { return true }

func (p *OllamaCloudProvider) IsConfigured() bool {
	return p.cfg.BaseURL != "" && p.cfg.Model != ""
}

// HealthCheck probes the version endpoint with a short timeout. Any
// transport failure or non-2xx status classifies as Unavailable.
func (p *OllamaCloudProvider) HealthCheck() llm.Health {
	if !p.IsConfigured() {
		return llm.HealthNotConfigured
	}
	result := p.transport(&TransportRequest{
		URL:     strings.TrimRight(p.cfg.BaseURL, "/") + "/api/version",
		Method:  http.MethodGet,
		Headers: p.headers(),
		Timeout: healthTimeout,
	})
	if !result.OK() {
		return llm.HealthUnavailable
	}
	return llm.HealthHealthy
}

// ListModels returns the configured model as a placeholder catalog
// entry; the endpoint is not queried.
func (p *OllamaCloudProvider) ListModels() []llm.ModelInfo {
	if p.cfg.Model == "" {
		return nil
	}
	return []llm.ModelInfo{{
		ID:          p.cfg.Model,
		Name:        p.cfg.Model,
		Description: "Ollama Cloud model",
		Available:   p.IsConfigured(),
	}}
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaChatPayload struct {
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
	Messages []llm.Message  `json:"messages"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaChatReply struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Response        string `json:"response"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *OllamaCloudProvider) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if p.cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + p.cfg.APIKey
	}
	return h
}

func (p *OllamaCloudProvider) buildPayload(req *llm.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	payload := ollamaChatPayload{
		Model:    model,
		Stream:   false,
		Messages: req.Messages,
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		payload.Options = &ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		}
	}
	return json.Marshal(payload)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends the request through the retry loop and parses the final
// attempt's outcome. Retry sleeps block the calling goroutine; attempts
// are strictly sequential against this one endpoint.
func (p *OllamaCloudProvider) Chat(req *llm.Request) *llm.Response {
	if blocked := remotePrivacyBlock(OllamaCloudID, req); blocked != nil {
		return blocked
	}
	if !p.IsConfigured() {
		return llm.Failure(OllamaCloudID, llm.ErrCodeNotConfigured,
			"Ollama Cloud base URL or model is missing")
	}

	body, err := p.buildPayload(req)
	if err != nil {
		return llm.Failure(OllamaCloudID, llm.ErrCodeClientFailure,
			fmt.Sprintf("failed to encode request: %v", err))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.cfg.Timeout
	}
	treq := &TransportRequest{
		URL:     strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat",
		Method:  http.MethodPost,
		Body:    body,
		Headers: p.headers(),
		Timeout: timeout,
	}

	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoffBase := req.BackoffBase
	if backoffBase <= 0 {
		backoffBase = llm.DefaultBackoffBase
	}

	start := time.Now()
	result := p.sendWithRetry(treq, maxRetries, backoffBase)
	resp := p.parseResult(req, result)
	resp.Latency = time.Since(start)
	return resp
}

// sendWithRetry runs attempts 0..maxRetries. An attempt is terminal on
// wire success or on any 4xx status; everything else (5xx, transport
// error) is retried after an exponential backoff sleep.
func (p *OllamaCloudProvider) sendWithRetry(treq *TransportRequest, maxRetries int, backoffBase time.Duration) *TransportResult {
	var result *TransportResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// 1x, 2x, 4x the base delay for attempts 1, 2, 3...
			time.Sleep(backoffBase * time.Duration(1<<uint(attempt-1)))
		}
		result = p.transport(treq)
		if result.OK() {
			return result
		}
		if result.Err == nil && result.StatusCode >= 400 && result.StatusCode < 500 {
			return result
		}
	}
	return result
}

// parseResult converts the final transport outcome into a response,
// following the documented priority: message.content, then a top-level
// response string, then a top-level error, then a parse failure.
func (p *OllamaCloudProvider) parseResult(req *llm.Request, result *TransportResult) *llm.Response {
	if result.Err != nil {
		return llm.Failure(OllamaCloudID, llm.ErrCodeClientFailure,
			fmt.Sprintf("transport error: %v", result.Err))
	}

	if result.StatusCode < 200 || result.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d from Ollama Cloud", result.StatusCode)
		var reply ollamaChatReply
		if json.Unmarshal(result.Body, &reply) == nil && reply.Error != "" {
			msg = fmt.Sprintf("HTTP %d from Ollama Cloud: %s", result.StatusCode, reply.Error)
		}
		return llm.Failure(OllamaCloudID, llm.ErrCodeClientFailure, msg)
	}

	var reply ollamaChatReply
	if err := json.Unmarshal(result.Body, &reply); err != nil {
		return llm.Failure(OllamaCloudID, llm.ErrCodeParseFailure,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	var text string
	switch {
	case reply.Message != nil && reply.Message.Content != "":
		text = reply.Message.Content
	case reply.Response != "":
		text = reply.Response
	case reply.Error != "":
		return llm.Failure(OllamaCloudID, llm.ErrCodeClientFailure,
			fmt.Sprintf("Ollama Cloud error: %s", reply.Error))
	default:
		return llm.Failure(OllamaCloudID, llm.ErrCodeParseFailure, "unexpected response format")
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	return &llm.Response{
		Text: text,
		Usage: llm.TokenUsage{
			Prompt:     reply.PromptEvalCount,
			Completion: reply.EvalCount,
			Total:      reply.PromptEvalCount + reply.EvalCount,
		},
		ProviderID:     OllamaCloudID,
		Model:          model,
		Success:        true,
		UsedRemote:     true,
		PrivacyHonored: req.PrivacyLevel,
	}
}

// =============================================================================
// CATEGORIZE
// =============================================================================

// Categorize builds the two-part category prompt and delegates to Chat,
// inheriting its privacy gate and retry loop. The path is omitted from
// the user prompt unless upload is consented or the level is
// FullContent.
func (p *OllamaCloudProvider) Categorize(name, path string, isDir bool, consistencyContext string, base *llm.Request) *llm.Response {
	req := *base
	req.Messages = []llm.Message{
		llm.NewSystemMessage(categorizeSystemPrompt),
		llm.NewUserMessage(categorizeUserPrompt(name, path, isDir, consistencyContext, includePath(base))),
	}
	return p.Chat(&req)
}
