// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - "codex config" command: show, set, path.
package cli

import (
	"fmt"
	"strconv"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/secrets"
)

// HandleConfig implements "codex config [show|set|path]".
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		return configShow(args)
	case "path":
		path, err := config.PathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "set":
		return configSet(parser)
	default:
		return fmt.Errorf("unknown config subcommand %q (want show, set, or path)", parser.Subcommand())
	}
}

// configShow prints the current settings with secrets redacted. The
// settings are shown as stored: encrypted keys stay encrypted and are
// never decrypted just to display them.
func configShow(args Args) error {
	s, err := config.Load()
	if err != nil {
		return err
	}

	shown := *s
	shown.OpenAI.APIKey = redactSecret(shown.OpenAI.APIKey)
	shown.OllamaCloud.APIKey = redactSecret(shown.OllamaCloud.APIKey)

	if args.JSON {
		return printJSON(&shown)
	}

	fmt.Printf("llm_choice       = %s\n", shown.LLMChoice)
	fmt.Printf("privacy.mode     = %s\n", shown.Privacy.Mode)
	fmt.Printf("openai.api_key   = %s\n", shown.OpenAI.APIKey)
	fmt.Printf("openai.model     = %s\n", shown.OpenAI.Model)
	fmt.Printf("ollama_cloud.base_url     = %s\n", shown.OllamaCloud.BaseURL)
	fmt.Printf("ollama_cloud.api_key      = %s\n", shown.OllamaCloud.APIKey)
	fmt.Printf("ollama_cloud.model        = %s\n", shown.OllamaCloud.Model)
	fmt.Printf("ollama_cloud.timeout_secs = %d\n", shown.OllamaCloud.TimeoutSecs)
	fmt.Printf("ollama_cloud.max_retries  = %d\n", shown.OllamaCloud.MaxRetries)
	fmt.Printf("local.model_path = %s\n", shown.Local.ModelPath)
	fmt.Printf("telemetry.enabled = %t\n", shown.Telemetry.Enabled)
	for _, cm := range shown.CustomModels {
		active := ""
		if cm.ID == shown.ActiveCustomID {
			active = " (active)"
		}
		fmt.Printf("custom_model %s = %s%s\n", cm.ID, cm.Path, active)
	}
	return nil
}

// redactSecret hides a stored secret while showing whether one is set
// and whether it is encrypted at rest.
func redactSecret(v string) string {
	switch {
	case v == "":
		return "(not set)"
	case secrets.IsEncrypted(v):
		return "(set, encrypted)"
	default:
		return "(set, PLAINTEXT)"
	}
}

// configSet applies one "config set <key> <value>" mutation, validates
// the result, and saves.
func configSet(parser *ArgParser) error {
	key := parser.Positional(1)
	value := parser.Positional(2)
	if key == "" || value == "" {
		return fmt.Errorf("usage: codex config set <key> <value>")
	}

	s, err := config.Load()
	if err != nil {
		return err
	}

	switch key {
	case "llm_choice":
		s.LLMChoice = value

	case "privacy.mode":
		// SECURITY: persisting remote_allowed is the durable consent
		// every later invocation relies on, so it demands --confirm.
		if value == "remote_allowed" && !parser.BoolFlag("confirm") {
			return fmt.Errorf("setting privacy.mode to remote_allowed requires --confirm")
		}
		s.Privacy.Mode = value

	case "openai.api_key":
		if value, err = encryptSecret(value); err != nil {
			return err
		}
		s.OpenAI.APIKey = value
	case "openai.model":
		s.OpenAI.Model = value

	case "ollama_cloud.base_url":
		s.OllamaCloud.BaseURL = value
	case "ollama_cloud.api_key":
		if value, err = encryptSecret(value); err != nil {
			return err
		}
		s.OllamaCloud.APIKey = value
	case "ollama_cloud.model":
		s.OllamaCloud.Model = value
	case "ollama_cloud.timeout_secs":
		if s.OllamaCloud.TimeoutSecs, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("timeout_secs must be an integer: %w", err)
		}
	case "ollama_cloud.max_retries":
		if s.OllamaCloud.MaxRetries, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("max_retries must be an integer: %w", err)
		}
	case "ollama_cloud.backoff_base_ms":
		if s.OllamaCloud.BackoffBaseMS, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("backoff_base_ms must be an integer: %w", err)
		}

	case "local.model_path":
		s.Local.ModelPath = value

	case "telemetry.enabled":
		enabled, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("telemetry.enabled must be true or false")
		}
		s.Telemetry.Enabled = enabled

	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := s.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(s); err != nil {
		return err
	}
	fmt.Printf("Set %s\n", key)
	return nil
}

// encryptSecret encrypts an API key for storage at rest.
func encryptSecret(value string) (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	keeper, err := secrets.OpenKeyFile(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open key file: %w", err)
	}
	return keeper.EncryptString(value)
}
