// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import "errors"

// Client is the contract for an underlying inference client: the opaque,
// blocking collaborator a provider drives. The on-device engine and the
// commercial API client both satisfy it.
//
// Either operation may fail with an ordinary error; the owning provider
// converts that error into a failed Response (ErrCodeClientFailure) and
// never lets it escape.
type Client interface {
	// CompletePrompt runs one completion over a flattened prompt.
	CompletePrompt(prompt string, maxTokens int) (string, error)

	// CategorizeItem categorizes a named filesystem item. path may be
	// empty when the caller has redacted it for privacy.
	CategorizeItem(name, path string, isDir bool, consistencyContext string) (string, error)
}

// ErrNoEngine is returned by the placeholder client used when no
// on-device inference engine has been wired in.
var ErrNoEngine = errors.New("no local inference engine linked")

// NoEngineClient is a Client placeholder for builds without an on-device
// engine. Every call fails with ErrNoEngine, which the local provider
// surfaces as an ErrCodeClientFailure response.
type NoEngineClient struct{}

// CompletePrompt always fails with ErrNoEngine.
func (NoEngineClient) CompletePrompt(prompt string, maxTokens int) (string, error) {
	return "", ErrNoEngine
}

// CategorizeItem always fails with ErrNoEngine.
func (NoEngineClient) CategorizeItem(name, path string, isDir bool, consistencyContext string) (string, error) {
	return "", ErrNoEngine
}
