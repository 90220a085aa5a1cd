// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/daemon-codex/internal/llm"
	"github.com/jeranaias/daemon-codex/internal/telemetry"
	"github.com/jeranaias/daemon-codex/internal/util"
)

// =============================================================================
// PRIVACY MODE
// =============================================================================

// PrivacyMode is the process-wide switch gating whether any remote
// provider may be active at all.
type PrivacyMode int

const (
	// ModeLocalOnly blocks every provider that requires network. Default.
	ModeLocalOnly PrivacyMode = iota
	// ModeRemoteAllowed permits remote providers. Reached only through
	// an explicitly confirmed SetPrivacyMode call.
	ModeRemoteAllowed
)

func (m PrivacyMode) String() string {
	switch m {
	case ModeLocalOnly:
		return "local_only"
	case ModeRemoteAllowed:
		return "remote_allowed"
	default:
		return "unknown"
	}
}

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

var (
	// ErrNoActiveProvider is returned by ValidateRequest when no
	// provider is active.
	ErrNoActiveProvider = errors.New("No active provider configured")

	// ErrModeBlocksProvider is returned when the active provider needs
	// network under LocalOnly mode.
	ErrModeBlocksProvider = errors.New("Active provider requires network but privacy mode is LocalOnly")

	// ErrRequestLocalOnly is returned when the request itself forbids
	// leaving the machine but the active provider is remote.
	ErrRequestLocalOnly = errors.New("Request is marked LocalOnly but active provider requires network")
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the provider registry, the process-wide privacy mode,
// and the active provider selection. It is the choke point: all chat
// and categorize traffic passes through its privacy validation before
// any provider runs.
//
// The registry and active pointer are guarded by a RWMutex. The design
// assumes a single administrative goroutine performs Register,
// Unregister, SetActive, and SetPrivacyMode while worker goroutines
// only read; readers must treat an absent active provider as the
// no-active-provider error, never as a fault.
type Manager struct {
	mu       sync.RWMutex
	registry map[string]Provider
	activeID string
	mode     PrivacyMode

	sink telemetry.Sink
}

// NewManager builds a manager in LocalOnly mode with no providers.
func NewManager() *Manager {
	return &Manager{
		registry: make(map[string]Provider),
		mode:     ModeLocalOnly,
		sink:     telemetry.NopSink{},
	}
}

// WithTelemetry sets the usage sink and returns the manager.
func (m *Manager) WithTelemetry(sink telemetry.Sink) *Manager {
	if sink != nil {
		m.sink = sink
	}
	return m
}

// =============================================================================
// REGISTRY
// =============================================================================

// Register inserts or replaces a provider by identity. A nil provider
// is a no-op.
func (m *Manager) Register(p Provider) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[p.ID()] = p
}

// Unregister removes a provider. If it was active, the active selection
// is cleared.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registry, id)
	if m.activeID == id {
		m.activeID = ""
	}
}

// Get looks up a provider by identity.
func (m *Manager) Get(id string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.registry[id]
	return p, ok
}

// All returns every registered provider, in no particular order.
func (m *Manager) All() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.registry))
	for _, p := range m.registry {
		out = append(out, p)
	}
	return out
}

// AllowedProviders returns the providers usable under the current
// privacy mode: every local provider, plus remote ones only when the
// mode is RemoteAllowed.
func (m *Manager) AllowedProviders() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.registry))
	for _, p := range m.registry {
		if m.allowedLocked(p) {
			out = append(out, p)
		}
	}
	return out
}

// allowedLocked applies the allowed-provider rule. Callers hold m.mu.
func (m *Manager) allowedLocked(p Provider) bool {
	if !p.RequiresNetwork() {
		return true
	}
	return m.mode == ModeRemoteAllowed
}

// =============================================================================
// ACTIVE SELECTION
// =============================================================================

// SetActive selects the active provider. It fails, leaving the current
// selection unchanged, when the id is unknown or the provider is not
// allowed under the current privacy mode.
func (m *Manager) SetActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.registry[id]
	if !ok {
		return false
	}
	if !m.allowedLocked(p) {
		log.Printf("cannot set active provider: %s is remote and privacy mode is LocalOnly", id)
		return false
	}
	m.activeID = id
	return true
}

// Active returns the active provider, or nil when none is selected.
func (m *Manager) Active() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeID == "" {
		return nil
	}
	return m.registry[m.activeID]
}

// =============================================================================
// PRIVACY MODE
// =============================================================================

// SetPrivacyMode changes the process-wide mode. Switching to
// RemoteAllowed requires confirmed=true and fails otherwise. Switching
// to LocalOnly always succeeds and, as a side effect, deactivates an
// active provider that requires network.
func (m *Manager) SetPrivacyMode(mode PrivacyMode, confirmed bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode == ModeRemoteAllowed && !confirmed {
		log.Printf("refusing to enable remote providers without explicit confirmation")
		return false
	}

	m.mode = mode

	if mode == ModeLocalOnly && m.activeID != "" {
		if p, ok := m.registry[m.activeID]; ok && p.RequiresNetwork() {
			log.Printf("privacy mode is now LocalOnly, deactivating remote provider %s", m.activeID)
			m.activeID = ""
		}
	}
	return true
}

// PrivacyMode returns the current mode.
func (m *Manager) PrivacyMode() PrivacyMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// RemoteAllowed reports whether remote providers are currently allowed.
func (m *Manager) RemoteAllowed() bool {
	return m.PrivacyMode() == ModeRemoteAllowed
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateRequest checks a request against the current state without
// mutating anything or invoking a provider. It returns nil when the
// request would be dispatched.
func (m *Manager) ValidateRequest(req *llm.Request) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.registry[m.activeID]
	if m.activeID == "" || !ok {
		return ErrNoActiveProvider
	}

	if p.RequiresNetwork() {
		if m.mode == ModeLocalOnly {
			return ErrModeBlocksProvider
		}
		if req.PrivacyLevel == llm.PrivacyLocalOnly {
			return ErrRequestLocalOnly
		}
	}
	return nil
}

// checkDispatch re-derives the validation checks and returns either the
// provider to dispatch to or a ready-made failure response. Done under
// one read lock so the mode and active pointer are seen consistently.
func (m *Manager) checkDispatch(privacyLevel llm.PrivacyLevel, localOnlyMsg string) (Provider, *llm.Response) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.registry[m.activeID]
	if m.activeID == "" || !ok {
		return nil, llm.Failure("", llm.ErrCodeNotConfigured, "No active provider configured")
	}

	if !m.allowedLocked(p) {
		return nil, llm.Failure(p.ID(), llm.ErrCodePrivacyBlocked,
			fmt.Sprintf("Request blocked: provider '%s' requires network but privacy mode is LocalOnly. "+
				"Enable remote providers in settings if you want to use this provider.", p.ID()))
	}

	if p.RequiresNetwork() && privacyLevel == llm.PrivacyLocalOnly {
		return nil, llm.Failure(p.ID(), llm.ErrCodePrivacyBlocked, localOnlyMsg)
	}

	return p, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Chat validates the request at the choke point and forwards it to the
// active provider. Providers repeat the privacy checks internally;
// the duplication is deliberate defense in depth.
func (m *Manager) Chat(req *llm.Request) *llm.Response {
	p, blocked := m.checkDispatch(req.PrivacyLevel,
		"Request marked as LocalOnly cannot be sent to remote provider")
	if blocked != nil {
		return blocked
	}

	// SECURITY: never log the whole prompt, only a capped excerpt.
	prompt := lastUserContent(req)
	log.Printf("DISPATCH: chat via %s (%d runes: %q)",
		p.ID(), util.RuneLen(prompt), util.TruncateRunes(prompt, promptLogRunes))

	resp := p.Chat(req)
	m.record("chat", resp)
	return resp
}

// Categorize validates like Chat and forwards the categorization call.
func (m *Manager) Categorize(name, path string, isDir bool, consistencyContext string, base *llm.Request) *llm.Response {
	p, blocked := m.checkDispatch(base.PrivacyLevel,
		"Categorization request marked as LocalOnly cannot be sent to remote provider")
	if blocked != nil {
		return blocked
	}

	// The path never reaches the log; the name alone is enough to trace.
	log.Printf("DISPATCH: categorize %q via %s", util.TruncateRunes(name, promptLogRunes), p.ID())

	resp := p.Categorize(name, path, isDir, consistencyContext, base)
	m.record("categorize", resp)
	return resp
}

// promptLogRunes caps how much request text a dispatch log line carries.
const promptLogRunes = 48

// lastUserContent returns the content of the most recent user message.
func lastUserContent(req *llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

// record emits a usage event. Fire and forget: the sink swallows its
// own failures.
func (m *Manager) record(operation string, resp *llm.Response) {
	evt := telemetry.NewEvent(resp.ProviderID, resp.Model, operation)
	evt.Success = resp.Success
	evt.ErrorCode = resp.ErrorCode
	evt.UsedRemote = resp.UsedRemote
	evt.PromptTokens = resp.Usage.Prompt
	evt.CompletionTokens = resp.Usage.Completion
	evt.Latency = resp.Latency
	m.sink.Record(evt)
}
