// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider routes inference requests to interchangeable
// backends: an on-device model, the OpenAI API, and a self-hosted
// Ollama Cloud endpoint.
//
// The Manager is the choke point: every chat and categorize call passes
// through its privacy validation before reaching a provider. Providers
// repeat the same checks internally, so a provider invoked directly
// still refuses requests its privacy level forbids. Failures are
// returned as Response values with an error code, never as errors
// crossing the package boundary.
package provider
