// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and implements the one-shot
// command handlers for codex.
//
// Every command runs the same bootstrap: load settings, open the secret
// keeper, build the provider registry, and route requests through the
// provider.Manager so the privacy policy is enforced on every path. The
// --allow-remote flag is the explicit confirmation required before the
// manager will leave local-only mode for this invocation.
package cli
