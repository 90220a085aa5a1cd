// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - "codex models" command.
package cli

import (
	"fmt"

	"github.com/jeranaias/daemon-codex/internal/llm"
	"github.com/jeranaias/daemon-codex/internal/util"
)

// modelRow attributes a model to the provider that serves it.
type modelRow struct {
	Provider string `json:"provider"`
	llm.ModelInfo
}

// HandleModels implements "codex models". Only providers the current
// privacy mode allows are consulted; a blocked provider's catalog is as
// unreachable as the provider itself.
func HandleModels(args Args) error {
	rt, err := NewRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	var rows []modelRow
	for _, p := range rt.Manager.AllowedProviders() {
		for _, m := range p.ListModels() {
			rows = append(rows, modelRow{Provider: p.ID(), ModelInfo: m})
		}
	}

	if args.JSON {
		return printJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No models available. Run 'codex status' to see provider state.")
		return nil
	}

	for _, r := range rows {
		size := ""
		if r.SizeBytes > 0 {
			size = util.FormatByteSize(r.SizeBytes)
		}
		kind := "remote"
		if r.Local {
			kind = "local"
		}
		avail := ""
		if !r.Available {
			avail = "(unavailable)"
		}
		fmt.Printf("%-14s %-28s %-7s %-10s %s\n", r.Provider, r.ID, kind, size, avail)
	}
	return nil
}
