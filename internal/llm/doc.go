// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm defines the request/response data model shared by all LLM
// providers, plus the contract for the underlying inference clients.
//
// Everything in this package is a value object: requests and responses
// have no identity beyond a single call, carry no goroutines, and are
// safe to copy. Failures travel as data (Response.Success == false with
// an error code), never as panics crossing a provider boundary.
//
// Privacy levels order the amount of data a single request permits to
// leave the device:
//
//	LocalOnly < MetadataOnly < ContentExcerpt < FullContent
//
// MetadataOnly is the default. Providers and the provider.Manager both
// enforce these levels; see the provider package for the enforcement
// rules.
package llm
