// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing and global flags for codex.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/daemon-codex/internal/llm"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdStatus Command = iota
	CmdModels
	CmdChat
	CmdCategorize
	CmdConfig
	CmdUsage
	CmdWatch
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	AllowRemote   bool   // Explicit confirmation to leave local-only mode
	ConsentUpload bool   // Consent flag for full-content upload
	Privacy       string // Per-request privacy level override
	Model         string // Override the configured model
	JSON          bool   // Output in JSON format
	Quiet         bool   // Minimal output

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after global flag parsing
	Raw []string
}

const usageText = `codex - privacy-first LLM provider routing

Codex routes inference requests across an on-device model, OpenAI, and a
self-hosted Ollama endpoint. Nothing leaves the machine unless you say so:
the process starts in local-only mode and remote providers stay blocked
until --allow-remote (or a persisted remote_allowed setting) confirms it.

Usage:
  codex status                 Show providers, health, and privacy mode
  codex models                 List models the allowed providers can serve
  codex chat "question"        Send a one-shot chat request
  codex categorize <path>      Categorize a file or directory
  codex config [show|set|path] Configuration management
  codex usage [--since DUR]    Show local usage statistics
  codex watch                  Run resident, hot-reloading config changes
  codex version                Show version information

Chat:
  codex chat "question"
    --privacy LEVEL       local_only | metadata_only | content_excerpt | full_content
    --consent-upload      Required together with full_content
    --model NAME          Override the configured model
    --max-tokens N        Completion token limit

Categorize:
  codex categorize <path>
    --context TEXT        Existing category names for consistent placement
    --privacy LEVEL       Same levels as chat

Config:
  codex config show                  Show current configuration (keys redacted)
  codex config path                  Print the config file location
  codex config set <key> <value>     Set a configuration value
    Keys: llm_choice, privacy.mode, openai.api_key, openai.model,
          ollama_cloud.base_url, ollama_cloud.api_key, ollama_cloud.model,
          ollama_cloud.timeout_secs, ollama_cloud.max_retries,
          local.model_path, telemetry.enabled
  codex config set privacy.mode remote_allowed --confirm
                                     Remote mode requires explicit --confirm

Watch mode:
  codex watch                        Stay resident; edits to the config file
                                     take effect immediately and usage events
                                     are echoed to the log

Usage statistics:
  codex usage                        Totals for the last 30 days
  codex usage --since 24h            Relative window (h, d suffixes)
  codex usage --by-provider          Per-provider breakdown

Global Flags:
  --allow-remote        Allow remote providers for this invocation
  --json                Output in JSON format
  -q, --quiet           Minimal output

Examples:
  codex status
  codex chat "Summarize RAII in one sentence"
  codex chat --allow-remote --privacy metadata_only "Name this project"
  codex categorize ~/Downloads/invoice-march.pdf --context "Finance, Receipts"
  codex config set llm_choice ollama_cloud
  codex usage --since 7d --by-provider

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("codex version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdStatus, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		args.Subcommand = remaining[0]
	}

	switch cmd {
	case "status", "s":
		return CmdStatus, args
	case "models", "m":
		return CmdModels, args
	case "chat", "ask":
		args.Query = strings.Join(positionalOnly(remaining), " ")
		return CmdChat, args
	case "categorize", "cat":
		return CmdCategorize, args
	case "config":
		return CmdConfig, args
	case "usage", "stats":
		return CmdUsage, args
	case "watch":
		return CmdWatch, args
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags strips global flags out of argv and returns whatever
// is left for command-specific parsing.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "--allow-remote":
			args.AllowRemote = true
		case "--consent-upload":
			args.ConsentUpload = true
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		case "--privacy":
			if i+1 < len(argv) {
				args.Privacy = argv[i+1]
				i++
			}
		case "--model":
			if i+1 < len(argv) {
				args.Model = argv[i+1]
				i++
			}
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// positionalOnly filters flags (and their values) out of command args,
// keeping just the free-text words.
func positionalOnly(argv []string) []string {
	var out []string
	for i := 0; i < len(argv); i++ {
		if strings.HasPrefix(argv[i], "-") {
			if !strings.Contains(argv[i], "=") && i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, argv[i])
	}
	return out
}

// parsePrivacyLevel maps a flag value to a privacy level. An empty value
// selects the metadata-only default.
func parsePrivacyLevel(s string) (llm.PrivacyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metadata_only", "metadata":
		return llm.PrivacyMetadataOnly, nil
	case "local_only", "local":
		return llm.PrivacyLocalOnly, nil
	case "content_excerpt", "excerpt":
		return llm.PrivacyContentExcerpt, nil
	case "full_content", "full":
		return llm.PrivacyFullContent, nil
	default:
		return llm.PrivacyMetadataOnly, fmt.Errorf("invalid privacy level %q", s)
	}
}
