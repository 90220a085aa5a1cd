// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records provider usage locally.
//
// Events are appended to a SQLite database under the config directory
// and never leave the machine. Sinks are fire-and-forget: a telemetry
// failure is logged, not returned, so it can never fail a request.
package telemetry
