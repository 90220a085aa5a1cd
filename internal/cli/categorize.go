// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// categorize.go - "codex categorize" command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// HandleCategorize implements "codex categorize <path>".
//
// The target does not have to exist; categorization works from the name
// alone. When it does exist, the directory bit comes from the
// filesystem instead of a flag.
func HandleCategorize(args Args) error {
	parser := NewArgParser(args.Raw)
	target := parser.Positional(0)
	if target == "" {
		return fmt.Errorf("categorize requires a path: codex categorize <path>")
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", target, err)
	}
	isDir := parser.BoolFlag("dir")
	if info, statErr := os.Stat(abs); statErr == nil {
		isDir = info.IsDir()
	}

	rt, err := NewRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	req, err := buildRequest(args, rt.Settings)
	if err != nil {
		return err
	}

	name := filepath.Base(abs)
	context := parser.Flag("context")
	resp := rt.Manager.Categorize(name, abs, isDir, context, req)
	return printResponse(args, resp)
}
