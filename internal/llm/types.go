// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import "time"

// =============================================================================
// ROLES AND MESSAGES
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Message is a single role-tagged message in a request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// =============================================================================
// PRIVACY LEVELS
// =============================================================================

// PrivacyLevel declares, per request, how much data may leave the device.
// Levels are ordered by increasing exposure.
type PrivacyLevel int

const (
	// PrivacyLocalOnly forbids the request from reaching any remote
	// provider at all.
	PrivacyLocalOnly PrivacyLevel = iota

	// PrivacyMetadataOnly allows names and structural metadata to be
	// sent remotely, but never file paths or content. This is the
	// default.
	PrivacyMetadataOnly

	// PrivacyContentExcerpt allows short content excerpts to be sent.
	PrivacyContentExcerpt

	// PrivacyFullContent allows full content upload, but only together
	// with the request's explicit AllowContentUpload consent flag.
	PrivacyFullContent
)

// String returns the level name for logging and error messages.
func (p PrivacyLevel) String() string {
	switch p {
	case PrivacyLocalOnly:
		return "local_only"
	case PrivacyMetadataOnly:
		return "metadata_only"
	case PrivacyContentExcerpt:
		return "content_excerpt"
	case PrivacyFullContent:
		return "full_content"
	default:
		return "unknown"
	}
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// Capability flags declare what a provider can do.
type Capability uint32

const (
	// CapNone indicates no capabilities.
	CapNone Capability = 0

	// CapLocalInference indicates on-device inference.
	CapLocalInference Capability = 1 << iota

	// CapRemoteInference indicates inference over the network.
	CapRemoteInference

	// CapVision indicates image input support.
	CapVision

	// CapEmbeddings indicates embedding generation support.
	CapEmbeddings

	// CapStreaming indicates streaming output support.
	CapStreaming
)

// Has reports whether every flag in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// =============================================================================
// HEALTH
// =============================================================================

// Health classifies a provider's point-in-time readiness. It is a pure
// function of current configuration/filesystem/network state and is
// recomputed on every call, never cached.
type Health int

const (
	HealthHealthy Health = iota
	HealthDegraded
	HealthUnavailable
	HealthNotConfigured
)

// String returns the health name.
func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnavailable:
		return "unavailable"
	case HealthNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR CODES
// =============================================================================

// Error codes carried by failed responses. These are data, not Go errors:
// a provider converts every collaborator failure into one of these before
// the response crosses its boundary.
const (
	// ErrCodeNotConfigured: required configuration is missing (no API
	// key, no model path, no base-url+model). Fails fast, no network or
	// inference attempt is made.
	ErrCodeNotConfigured = 1

	// ErrCodeClientFailure: the underlying inference or transport call
	// failed. Caught locally and wrapped.
	ErrCodeClientFailure = 2

	// ErrCodeParseFailure: the response body could not be parsed into
	// the expected shape.
	ErrCodeParseFailure = 3

	// ErrCodePrivacyBlocked: the privacy policy blocked the request
	// before any call was made.
	ErrCodePrivacyBlocked = 403
)

// =============================================================================
// REQUEST
// =============================================================================

// Default request parameters.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 500 * time.Millisecond
)

// Request is a single inference request. Requests are value objects; a
// provider never mutates the request it is given.
type Request struct {
	// Messages is the ordered conversation to send.
	Messages []Message

	// Model is the target model id. Providers substitute their
	// configured default when empty.
	Model string

	Temperature float64
	MaxTokens   int

	// Timeout is threaded through to the transport/inference call and
	// enforced there, not by the core.
	Timeout time.Duration

	// PrivacyLevel declares how much of this request may leave the
	// device. Defaults to PrivacyMetadataOnly.
	PrivacyLevel PrivacyLevel

	// AllowContentUpload is the explicit consent flag required before
	// a FullContent request may reach a remote provider.
	AllowContentUpload bool

	// Retry policy, honored only by transports that retry (the
	// self-hosted remote provider).
	MaxRetries  int
	BackoffBase time.Duration
}

// NewRequest returns a request with the default parameters and the given
// user prompt as its single message.
func NewRequest(prompt string) *Request {
	return &Request{
		Messages:     []Message{NewUserMessage(prompt)},
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		Timeout:      DefaultTimeout,
		PrivacyLevel: PrivacyMetadataOnly,
		MaxRetries:   DefaultMaxRetries,
		BackoffBase:  DefaultBackoffBase,
	}
}

// =============================================================================
// RESPONSE
// =============================================================================

// TokenUsage counts tokens consumed by one request.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Response is the structured result of a chat or categorize call.
type Response struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`

	// Identity of the provider and model that served the request.
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`

	Latency time.Duration `json:"latency"`

	Success      bool   `json:"success"`
	ErrorCode    int    `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// UsedRemote reports whether remote inference was actually used.
	UsedRemote bool `json:"used_remote"`

	// PrivacyHonored is the privacy level actually honored.
	PrivacyHonored PrivacyLevel `json:"privacy_honored"`
}

// Failure builds a failed response with the given code and message.
func Failure(providerID string, code int, message string) *Response {
	return &Response{
		ProviderID:   providerID,
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// =============================================================================
// MODEL DESCRIPTORS
// =============================================================================

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Local reports whether the model runs on-device.
	Local bool `json:"local"`

	// SizeBytes is the on-disk artifact size; zero when unknown.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// ParameterSize is a display string such as "7B"; empty when unknown.
	ParameterSize string `json:"parameter_size,omitempty"`

	// ContextLength is the context window in tokens; zero when unknown.
	ContextLength int `json:"context_length,omitempty"`

	Available bool `json:"available"`
}
