// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers: rune-safe truncation for
// log lines, byte-size formatting for model listings, and atomic file
// writes used by everything that persists state.
package util
