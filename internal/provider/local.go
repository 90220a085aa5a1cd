// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// LOCAL PROVIDER
// =============================================================================

// LocalID is the registry identity of the on-device provider.
const LocalID = "local"

// LocalProvider serves inference from a model artifact on disk through
// an injected engine client. It never touches the network, so it never
// rejects a request on privacy grounds.
type LocalProvider struct {
	modelPath string
	engine    llm.Client
}

// NewLocalProvider builds a local provider for the given model artifact.
// A nil engine falls back to the stub client, which fails every call
// until a real inference engine is linked in.
func NewLocalProvider(modelPath string, engine llm.Client) *LocalProvider {
	if engine == nil {
		engine = llm.NoEngineClient{}
	}
	return &LocalProvider{modelPath: modelPath, engine: engine}
}

func (p *LocalProvider) ID() string          { return LocalID }
func (p *LocalProvider) DisplayName() string { return "Local" }

func (p *LocalProvider) Capabilities() llm.Capability {
	return llm.CapLocalInference
}

func (p *LocalProvider) RequiresNetwork() bool { return false }

// IsConfigured reports whether the model artifact is present on disk.
func (p *LocalProvider) IsConfigured() bool {
	if p.modelPath == "" {
		return false
	}
	info, err := os.Stat(p.modelPath)
	return err == nil && !info.IsDir()
}

// HealthCheck recomputes readiness from the filesystem on every call.
func (p *LocalProvider) HealthCheck() llm.Health {
	if p.modelPath == "" {
		return llm.HealthNotConfigured
	}
	if !p.IsConfigured() {
		return llm.HealthUnavailable
	}
	return llm.HealthHealthy
}

// ListModels returns the configured artifact as a single entry, or
// nothing when the file is absent.
func (p *LocalProvider) ListModels() []llm.ModelInfo {
	info, err := os.Stat(p.modelPath)
	if err != nil || info.IsDir() {
		return nil
	}
	return []llm.ModelInfo{{
		ID:          p.modelPath,
		Name:        filepath.Base(p.modelPath),
		Description: "Local GGUF model",
		Local:       true,
		SizeBytes:   info.Size(),
		Available:   true,
	}}
}

// Chat flattens the message transcript into a single role-prefixed
// prompt and runs it through the engine. Latency covers the engine call
// only, not the artifact check.
func (p *LocalProvider) Chat(req *llm.Request) *llm.Response {
	if !p.IsConfigured() {
		return llm.Failure(LocalID, llm.ErrCodeNotConfigured,
			fmt.Sprintf("local model file not found: %s", p.modelPath))
	}

	prompt := flattenMessages(req.Messages)

	start := time.Now()
	text, err := p.engine.CompletePrompt(prompt, req.MaxTokens)
	latency := time.Since(start)

	if err != nil {
		resp := llm.Failure(LocalID, llm.ErrCodeClientFailure,
			fmt.Sprintf("local inference failed: %v", err))
		resp.Latency = latency
		resp.PrivacyHonored = req.PrivacyLevel
		return resp
	}

	return &llm.Response{
		Text:           text,
		ProviderID:     LocalID,
		Model:          filepath.Base(p.modelPath),
		Latency:        latency,
		Success:        true,
		PrivacyHonored: req.PrivacyLevel,
	}
}

// Categorize asks the engine directly for a category. The path stays on
// this machine either way, so no redaction applies.
func (p *LocalProvider) Categorize(name, path string, isDir bool, consistencyContext string, base *llm.Request) *llm.Response {
	if !p.IsConfigured() {
		return llm.Failure(LocalID, llm.ErrCodeNotConfigured,
			fmt.Sprintf("local model file not found: %s", p.modelPath))
	}

	start := time.Now()
	text, err := p.engine.CategorizeItem(name, path, isDir, consistencyContext)
	latency := time.Since(start)

	if err != nil {
		resp := llm.Failure(LocalID, llm.ErrCodeClientFailure,
			fmt.Sprintf("local categorization failed: %v", err))
		resp.Latency = latency
		resp.PrivacyHonored = base.PrivacyLevel
		return resp
	}

	return &llm.Response{
		Text:           text,
		ProviderID:     LocalID,
		Model:          filepath.Base(p.modelPath),
		Latency:        latency,
		Success:        true,
		PrivacyHonored: base.PrivacyLevel,
	}
}
