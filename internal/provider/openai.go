// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// OPENAI PROVIDER
// =============================================================================

// OpenAIID is the registry identity of the commercial remote provider.
const OpenAIID = "openai"

// DefaultOpenAIModel is used when the configured model is blank.
const DefaultOpenAIModel = "gpt-4o-mini"

// openAICatalog is a static model catalog; listing never makes a
// network call.
var openAICatalog = []llm.ModelInfo{
	{ID: "gpt-4o", Name: "GPT-4o", Description: "Flagship multimodal model", ContextLength: 128000, Available: true},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Description: "Fast, inexpensive small model", ContextLength: 128000, Available: true},
	{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "Previous generation flagship", ContextLength: 128000, Available: true},
}

// OpenAIProvider serves inference through the OpenAI API via a blocking
// client. There is no retry loop here; the client makes exactly one
// attempt per request.
type OpenAIProvider struct {
	apiKey string
	model  string
	client llm.Client
}

// NewOpenAIProvider builds the commercial remote provider. A nil client
// gets the production HTTP client; tests inject a fake. A blank model
// falls back to DefaultOpenAIModel.
func NewOpenAIProvider(apiKey, model string, client llm.Client) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if client == nil {
		client = newOpenAIClient(apiKey, model)
	}
	return &OpenAIProvider{apiKey: apiKey, model: model, client: client}
}

func (p *OpenAIProvider) ID() string          { return OpenAIID }
func (p *OpenAIProvider) DisplayName() string { return "OpenAI" }

func (p *OpenAIProvider) Capabilities() llm.Capability {
	return llm.CapRemoteInference | llm.CapVision | llm.CapStreaming
}

func (p *OpenAIProvider) RequiresNetwork() bool { return true }

func (p *OpenAIProvider) IsConfigured() bool { return p.apiKey != "" }

// HealthCheck deliberately skips a live probe; a request to the API
// costs money and latency, so credential presence is the only signal.
func (p *OpenAIProvider) HealthCheck() llm.Health {
	if p.apiKey == "" {
		return llm.HealthNotConfigured
	}
	return llm.HealthHealthy
}

func (p *OpenAIProvider) ListModels() []llm.ModelInfo {
	models := make([]llm.ModelInfo, len(openAICatalog))
	copy(models, openAICatalog)
	return models
}

// Chat makes a single blocking client call after the privacy gate.
func (p *OpenAIProvider) Chat(req *llm.Request) *llm.Response {
	if blocked := remotePrivacyBlock(OpenAIID, req); blocked != nil {
		return blocked
	}
	if !p.IsConfigured() {
		return llm.Failure(OpenAIID, llm.ErrCodeNotConfigured, "OpenAI API key is missing")
	}

	prompt := flattenMessages(req.Messages)

	start := time.Now()
	text, err := p.client.CompletePrompt(prompt, req.MaxTokens)
	latency := time.Since(start)

	if err != nil {
		resp := llm.Failure(OpenAIID, llm.ErrCodeClientFailure,
			fmt.Sprintf("OpenAI client error: %v", err))
		resp.Latency = latency
		resp.PrivacyHonored = req.PrivacyLevel
		return resp
	}

	return &llm.Response{
		Text:           text,
		ProviderID:     OpenAIID,
		Model:          p.model,
		Latency:        latency,
		Success:        true,
		UsedRemote:     true,
		PrivacyHonored: req.PrivacyLevel,
	}
}

// Categorize sends only the item name unless content upload is
// consented or the privacy level is FullContent; the path is withheld
// in the safe case.
func (p *OpenAIProvider) Categorize(name, path string, isDir bool, consistencyContext string, base *llm.Request) *llm.Response {
	if blocked := remotePrivacyBlock(OpenAIID, base); blocked != nil {
		return blocked
	}
	if !p.IsConfigured() {
		return llm.Failure(OpenAIID, llm.ErrCodeNotConfigured, "OpenAI API key is missing")
	}

	sentPath := ""
	if includePath(base) {
		sentPath = path
	}

	start := time.Now()
	text, err := p.client.CategorizeItem(name, sentPath, isDir, consistencyContext)
	latency := time.Since(start)

	if err != nil {
		resp := llm.Failure(OpenAIID, llm.ErrCodeClientFailure,
			fmt.Sprintf("OpenAI client error: %v", err))
		resp.Latency = latency
		resp.PrivacyHonored = base.PrivacyLevel
		return resp
	}

	return &llm.Response{
		Text:           text,
		ProviderID:     OpenAIID,
		Model:          p.model,
		Latency:        latency,
		Success:        true,
		UsedRemote:     true,
		PrivacyHonored: base.PrivacyLevel,
	}
}

// =============================================================================
// PRODUCTION CLIENT
// =============================================================================

// openAIClient is the production llm.Client backed by the OpenAI chat
// completions endpoint. One blocking attempt per call.
type openAIClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func newOpenAIClient(apiKey, model string) *openAIClient {
	return &openAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		http:    &http.Client{Timeout: llm.DefaultTimeout},
	}
}

type openAIChatRequest struct {
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *openAIClient) CompletePrompt(prompt string, maxTokens int) (string, error) {
	return c.complete([]llm.Message{llm.NewUserMessage(prompt)}, maxTokens)
}

func (c *openAIClient) CategorizeItem(name, path string, isDir bool, consistencyContext string) (string, error) {
	user := categorizeUserPrompt(name, path, isDir, consistencyContext, path != "")
	return c.complete([]llm.Message{
		llm.NewSystemMessage(categorizeSystemPrompt),
		llm.NewUserMessage(user),
	}, 0)
}

func (c *openAIClient) complete(messages []llm.Message, maxTokens int) (string, error) {
	body, err := json.Marshal(openAIChatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// SECURITY: Bound the response read to prevent memory exhaustion.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
