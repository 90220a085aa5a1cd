// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secrets protects provider API keys at rest.
//
// Keys are sealed with AES-256-GCM and stored in config files as
// ENC:base64(nonce || ciphertext || tag). The master key lives in a
// 0600 file under the config directory; a password-derived key via
// PBKDF2-SHA-256 is also supported.
package secrets
