// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// PROVIDER CONTRACT
// =============================================================================

// Provider is the common contract over all backend variants. Identity
// and DisplayName are stable and never empty. HealthCheck is a pure
// function of current configuration, filesystem, and network state; it
// is recomputed on every call, never cached.
//
// Chat and Categorize never return a Go error: all failures come back
// as a Response with Success=false and an error code from the taxonomy
// in package llm.
type Provider interface {
	// ID returns the stable provider identity used by the Manager registry.
	ID() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// Capabilities returns what this provider can do.
	Capabilities() llm.Capability

	// RequiresNetwork is fixed per variant: false for the local
	// provider, true for both remote variants.
	RequiresNetwork() bool

	// IsConfigured reports whether all required configuration is
	// present (model path on disk, API key, or base URL plus model).
	IsConfigured() bool

	// HealthCheck classifies current readiness.
	HealthCheck() llm.Health

	// ListModels returns the models this provider can serve. The local
	// variant returns zero or one entry; the commercial variant returns
	// a static catalog; the self-hosted variant returns the configured
	// model as a placeholder entry.
	ListModels() []llm.ModelInfo

	// Chat serves a free-form inference request.
	Chat(req *llm.Request) *llm.Response

	// Categorize builds a categorization prompt for a named filesystem
	// item and serves it under the same privacy rules as Chat. The path
	// is withheld from remote providers unless content upload is
	// consented or the privacy level is FullContent.
	Categorize(name, path string, isDir bool, consistencyContext string, base *llm.Request) *llm.Response
}

// remotePrivacyBlock returns the 403 response for a remote provider
// refusing a request on privacy grounds, or nil when the request may
// proceed. Both remote variants apply exactly these two rules.
func remotePrivacyBlock(providerID string, req *llm.Request) *llm.Response {
	if req.PrivacyLevel == llm.PrivacyLocalOnly {
		return llm.Failure(providerID, llm.ErrCodePrivacyBlocked,
			"request is marked LocalOnly and cannot be sent to a remote provider")
	}
	if req.PrivacyLevel == llm.PrivacyFullContent && !req.AllowContentUpload {
		return llm.Failure(providerID, llm.ErrCodePrivacyBlocked,
			"request asks for FullContent but content upload was not consented")
	}
	return nil
}
