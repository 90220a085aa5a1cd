// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package netguard validates remote provider endpoints before any
// network client dials them. It enforces an http/https scheme allow-list
// and classifies loopback hosts so callers can tell a local Ollama
// instance apart from a genuinely remote endpoint.
package netguard
