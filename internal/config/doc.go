// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists daemon-codex settings.
//
// Supports TOML (preferred) and legacy JSON, with built-in defaults,
// CODEX_* environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.codex/config.toml
//   - ~/.codex/config.json
//   - Built-in defaults
//
// A filesystem watcher (fsnotify) can push reloaded settings to a
// callback when the config file changes on disk.
package config
