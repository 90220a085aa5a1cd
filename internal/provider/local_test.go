// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// fakeEngine is a function-backed llm.Client for tests.
type fakeEngine struct {
	completeFn   func(prompt string, maxTokens int) (string, error)
	categorizeFn func(name, path string, isDir bool, ctx string) (string, error)
	calls        int
}

func (f *fakeEngine) CompletePrompt(prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.completeFn == nil {
		return "ok", nil
	}
	return f.completeFn(prompt, maxTokens)
}

func (f *fakeEngine) CategorizeItem(name, path string, isDir bool, ctx string) (string, error) {
	f.calls++
	if f.categorizeFn == nil {
		return "Documents : General", nil
	}
	return f.categorizeFn(name, path, isDir, ctx)
}

// writeModelArtifact drops a fake model file and returns its path.
func writeModelArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLocalProviderIdentity(t *testing.T) {
	p := NewLocalProvider("/nonexistent", nil)

	if p.ID() != "local" {
		t.Errorf("ID = %q", p.ID())
	}
	if p.DisplayName() == "" {
		t.Error("DisplayName must not be empty")
	}
	if p.RequiresNetwork() {
		t.Error("local provider must not require network")
	}
	if !p.Capabilities().Has(llm.CapLocalInference) {
		t.Error("local provider must declare LocalInference")
	}
	if p.Capabilities().Has(llm.CapRemoteInference) {
		t.Error("local provider must not declare RemoteInference")
	}
}

func TestLocalProviderHealth(t *testing.T) {
	if got := NewLocalProvider("", nil).HealthCheck(); got != llm.HealthNotConfigured {
		t.Errorf("empty path health = %v, want NotConfigured", got)
	}
	if got := NewLocalProvider("/does/not/exist.gguf", nil).HealthCheck(); got != llm.HealthUnavailable {
		t.Errorf("missing artifact health = %v, want Unavailable", got)
	}

	path := writeModelArtifact(t, "weights")
	if got := NewLocalProvider(path, nil).HealthCheck(); got != llm.HealthHealthy {
		t.Errorf("existing artifact health = %v, want Healthy", got)
	}
}

func TestLocalProviderListModels(t *testing.T) {
	if models := NewLocalProvider("/does/not/exist.gguf", nil).ListModels(); len(models) != 0 {
		t.Errorf("missing artifact should list no models, got %d", len(models))
	}

	content := "weights-weights-weights"
	path := writeModelArtifact(t, content)
	models := NewLocalProvider(path, nil).ListModels()
	if len(models) != 1 {
		t.Fatalf("models = %d, want 1", len(models))
	}
	m := models[0]
	if m.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", m.SizeBytes, len(content))
	}
	if !m.Available || !m.Local {
		t.Errorf("model flags = %+v", m)
	}
	if m.Name != "model.gguf" {
		t.Errorf("Name = %q", m.Name)
	}
}

func TestLocalProviderChatMissingArtifact(t *testing.T) {
	engine := &fakeEngine{}
	p := NewLocalProvider("/does/not/exist.gguf", engine)

	resp := p.Chat(llm.NewRequest("hello"))
	if resp.Success {
		t.Fatal("chat should fail on missing artifact")
	}
	if resp.ErrorCode != llm.ErrCodeNotConfigured {
		t.Errorf("ErrorCode = %d, want %d", resp.ErrorCode, llm.ErrCodeNotConfigured)
	}
	if engine.calls != 0 {
		t.Error("engine must not be invoked when the artifact is missing")
	}
}

func TestLocalProviderChatSuccess(t *testing.T) {
	path := writeModelArtifact(t, "weights")
	var gotPrompt string
	engine := &fakeEngine{completeFn: func(prompt string, maxTokens int) (string, error) {
		gotPrompt = prompt
		return "hi there", nil
	}}
	p := NewLocalProvider(path, engine)

	req := llm.NewRequest("hello")
	req.Messages = append([]llm.Message{llm.NewSystemMessage("be brief")}, req.Messages...)
	resp := p.Chat(req)

	if !resp.Success {
		t.Fatalf("chat failed: %s", resp.ErrorMessage)
	}
	if resp.Text != "hi there" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.UsedRemote {
		t.Error("local chat must not report remote inference")
	}
	if resp.ProviderID != "local" {
		t.Errorf("ProviderID = %q", resp.ProviderID)
	}
	// Flattened prompt keeps role prefixes in order.
	if !strings.Contains(gotPrompt, "system: be brief") || !strings.Contains(gotPrompt, "user: hello") {
		t.Errorf("flattened prompt = %q", gotPrompt)
	}
	if strings.Index(gotPrompt, "system:") > strings.Index(gotPrompt, "user:") {
		t.Error("message order not preserved in flattened prompt")
	}
}

func TestLocalProviderChatEngineFailure(t *testing.T) {
	path := writeModelArtifact(t, "weights")
	engine := &fakeEngine{completeFn: func(string, int) (string, error) {
		return "", errors.New("inference core dumped")
	}}
	p := NewLocalProvider(path, engine)

	resp := p.Chat(llm.NewRequest("hello"))
	if resp.Success {
		t.Fatal("chat should fail when the engine fails")
	}
	if resp.ErrorCode != llm.ErrCodeClientFailure {
		t.Errorf("ErrorCode = %d, want %d", resp.ErrorCode, llm.ErrCodeClientFailure)
	}
	if !strings.Contains(resp.ErrorMessage, "inference core dumped") {
		t.Errorf("ErrorMessage = %q should embed the engine error", resp.ErrorMessage)
	}
}

func TestLocalProviderNeverRejectsOnPrivacy(t *testing.T) {
	path := writeModelArtifact(t, "weights")
	p := NewLocalProvider(path, &fakeEngine{})

	for _, level := range []llm.PrivacyLevel{
		llm.PrivacyLocalOnly, llm.PrivacyMetadataOnly,
		llm.PrivacyContentExcerpt, llm.PrivacyFullContent,
	} {
		req := llm.NewRequest("hello")
		req.PrivacyLevel = level
		if resp := p.Chat(req); !resp.Success {
			t.Errorf("local chat rejected privacy level %v: %s", level, resp.ErrorMessage)
		}
	}
}

func TestLocalProviderCategorize(t *testing.T) {
	path := writeModelArtifact(t, "weights")
	var gotName, gotPath string
	engine := &fakeEngine{categorizeFn: func(name, path string, isDir bool, ctx string) (string, error) {
		gotName, gotPath = name, path
		return "Documents : Invoices", nil
	}}
	p := NewLocalProvider(path, engine)

	resp := p.Categorize("invoice.pdf", "/home/u/invoice.pdf", false, "", llm.NewRequest(""))
	if !resp.Success {
		t.Fatalf("categorize failed: %s", resp.ErrorMessage)
	}
	if resp.Text != "Documents : Invoices" {
		t.Errorf("Text = %q", resp.Text)
	}
	// Local inference never redacts the path; nothing leaves the machine.
	if gotName != "invoice.pdf" || gotPath != "/home/u/invoice.pdf" {
		t.Errorf("engine saw name=%q path=%q", gotName, gotPath)
	}
}

func TestLocalProviderNoEngine(t *testing.T) {
	path := writeModelArtifact(t, "weights")
	p := NewLocalProvider(path, nil)

	resp := p.Chat(llm.NewRequest("hello"))
	if resp.Success {
		t.Fatal("stub engine should fail")
	}
	if resp.ErrorCode != llm.ErrCodeClientFailure {
		t.Errorf("ErrorCode = %d, want %d", resp.ErrorCode, llm.ErrCodeClientFailure)
	}
}
