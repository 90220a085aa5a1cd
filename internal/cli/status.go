// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - "codex status" command: providers, health, privacy mode.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// providerStatus is one row of the status report.
type providerStatus struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Health     string `json:"health"`
	Network    bool   `json:"requires_network"`
	Active     bool   `json:"active"`
	Allowed    bool   `json:"allowed"`
}

// statusReport is the full "codex status" output.
type statusReport struct {
	PrivacyMode string           `json:"privacy_mode"`
	LLMChoice   string           `json:"llm_choice"`
	Active      string           `json:"active_provider,omitempty"`
	Providers   []providerStatus `json:"providers"`
}

// HandleStatus implements "codex status".
func HandleStatus(args Args) error {
	rt, err := NewRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	report := buildStatusReport(rt)

	if args.JSON {
		return printJSON(report)
	}

	fmt.Printf("Privacy mode:    %s\n", report.PrivacyMode)
	fmt.Printf("Configured LLM:  %s\n", report.LLMChoice)
	if report.Active != "" {
		fmt.Printf("Active provider: %s\n", report.Active)
	} else {
		fmt.Println("Active provider: (none)")
	}
	fmt.Println()

	for _, p := range report.Providers {
		marker := " "
		if p.Active {
			marker = "*"
		}
		network := "local"
		if p.Network {
			network = "remote"
		}
		state := p.Health
		if !p.Allowed {
			state += ", blocked by privacy mode"
		}
		fmt.Printf("%s %-14s %-22s %-7s %s\n", marker, p.ID, p.Name, network, state)
	}
	return nil
}

// buildStatusReport snapshots the manager state into a report.
func buildStatusReport(rt *Runtime) *statusReport {
	report := &statusReport{
		PrivacyMode: rt.Manager.PrivacyMode().String(),
		LLMChoice:   rt.Settings.LLMChoice,
	}
	active := rt.Manager.Active()
	if active != nil {
		report.Active = active.ID()
	}

	allowed := make(map[string]bool)
	for _, p := range rt.Manager.AllowedProviders() {
		allowed[p.ID()] = true
	}

	for _, p := range rt.Manager.All() {
		report.Providers = append(report.Providers, providerStatus{
			ID:         p.ID(),
			Name:       p.DisplayName(),
			Configured: p.IsConfigured(),
			Health:     p.HealthCheck().String(),
			Network:    p.RequiresNetwork(),
			Active:     active != nil && active.ID() == p.ID(),
			Allowed:    allowed[p.ID()],
		})
	}
	sort.Slice(report.Providers, func(i, j int) bool {
		return report.Providers[i].ID < report.Providers[j].ID
	})
	return report
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
