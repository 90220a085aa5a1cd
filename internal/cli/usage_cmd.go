// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage_cmd.go - "codex usage" command: local usage statistics.
package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/telemetry"
)

// defaultUsageWindow is the reporting window when --since is absent.
const defaultUsageWindow = 30 * 24 * time.Hour

// usageReport is the JSON shape of "codex usage".
type usageReport struct {
	Since     time.Time                   `json:"since"`
	Total     *telemetry.Summary          `json:"total"`
	Providers []telemetry.ProviderSummary `json:"providers,omitempty"`
}

// HandleUsage implements "codex usage".
func HandleUsage(args Args) error {
	parser := NewArgParser(args.Raw)

	window, err := parseWindow(parser.FlagOrDefault("since", ""))
	if err != nil {
		return err
	}
	since := time.Now().Add(-window)

	s, err := config.Load()
	if err != nil {
		return err
	}
	if !s.Telemetry.Enabled {
		return fmt.Errorf("telemetry is disabled; enable it with: codex config set telemetry.enabled true")
	}
	path := s.Telemetry.DBPath
	if path == "" {
		dir, derr := config.ConfigDir()
		if derr != nil {
			return derr
		}
		path = filepath.Join(dir, "usage.db")
	}

	store, err := telemetry.OpenUsageStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	report := &usageReport{Since: since}
	if report.Total, err = store.Summarize(since); err != nil {
		return err
	}
	if parser.BoolFlag("by-provider") || args.JSON {
		if report.Providers, err = store.SummarizeByProvider(since); err != nil {
			return err
		}
	}

	if args.JSON {
		return printJSON(report)
	}

	fmt.Printf("Usage since %s\n", since.Format("2006-01-02 15:04"))
	printSummaryLine("total", report.Total)
	for i := range report.Providers {
		printSummaryLine(report.Providers[i].ProviderID, &report.Providers[i].Summary)
	}
	return nil
}

func printSummaryLine(label string, sum *telemetry.Summary) {
	fmt.Printf("  %-14s %d requests, %d failed, %d remote, %d prompt + %d completion tokens\n",
		label, sum.Events, sum.Failures, sum.RemoteEvents, sum.PromptTokens, sum.CompletionTokens)
}

// parseWindow parses a relative window such as "24h" or "7d". An empty
// value selects the 30-day default.
func parseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultUsageWindow, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid --since value %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid --since value %q", s)
	}
	return d, nil
}
