// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// CATEGORIZATION PROMPTS
// =============================================================================

// categorizeSystemPrompt instructs the model to answer in the strict
// two-part format the move planner parses downstream.
const categorizeSystemPrompt = `You are a file organization assistant. ` +
	`Given a file or directory, respond with exactly one category and one subcategory ` +
	`in the form "Category : Subcategory". Respond with nothing else: no explanation, ` +
	`no punctuation beyond the single colon separator.`

// includePath reports whether the request's privacy settings permit
// sending the filesystem path alongside the name. Only explicit content
// upload consent or a FullContent privacy level unlocks it.
func includePath(req *llm.Request) bool {
	return req.AllowContentUpload || req.PrivacyLevel == llm.PrivacyFullContent
}

// categorizeUserPrompt builds the user-facing half of a categorization
// request. withPath controls whether the full path appears; the safe
// form carries only the item name.
func categorizeUserPrompt(name, path string, isDir bool, consistencyContext string, withPath bool) string {
	kind := "file"
	if isDir {
		kind = "directory"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Categorize this %s: %q", kind, name)
	if withPath && path != "" {
		fmt.Fprintf(&b, " (located at %q)", path)
	}
	if consistencyContext != "" {
		b.WriteString("\n\nPreviously assigned categories for related items:\n")
		b.WriteString(consistencyContext)
	}
	return b.String()
}

// flattenMessages concatenates role-prefixed message bodies in order,
// for engines that take a single prompt string instead of a chat
// transcript.
func flattenMessages(messages []llm.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}
