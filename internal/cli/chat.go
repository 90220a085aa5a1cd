// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - "codex chat" command: one-shot inference through the manager.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/llm"
)

// timePrecision rounds latencies for display.
const timePrecision = time.Millisecond

// HandleChat implements "codex chat".
func HandleChat(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("chat requires a prompt: codex chat \"question\"")
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
	req.Messages = []llm.Message{llm.NewUserMessage(args.Query)}

	resp := rt.Manager.Chat(req)
	return printResponse(args, resp)
}

// buildRequest maps the common request flags onto an llm.Request. The
// persisted ollama_cloud retry policy rides along on every request so
// the self-hosted provider honors what "config set" stored; the local
// and commercial providers ignore those fields.
func buildRequest(args Args, s *config.Settings) (*llm.Request, error) {
	level, err := parsePrivacyLevel(args.Privacy)
	if err != nil {
		return nil, err
	}
	if level == llm.PrivacyFullContent && !args.ConsentUpload {
		return nil, fmt.Errorf("--privacy full_content requires --consent-upload")
	}

	req := llm.NewRequest("")
	req.PrivacyLevel = level
	req.AllowContentUpload = args.ConsentUpload
	req.Model = args.Model

	// MaxRetries is copied unconditionally: zero is a valid stored
	// policy meaning "no retries", not an absent value.
	req.MaxRetries = s.OllamaCloud.MaxRetries
	if s.OllamaCloud.BackoffBaseMS > 0 {
		req.BackoffBase = time.Duration(s.OllamaCloud.BackoffBaseMS) * time.Millisecond
	}
	if s.OllamaCloud.TimeoutSecs > 0 {
		req.Timeout = time.Duration(s.OllamaCloud.TimeoutSecs) * time.Second
	}

	parser := NewArgParser(args.Raw)
	if n := parser.FlagIntOrDefault("max-tokens", 0); n > 0 {
		req.MaxTokens = n
	}
	return req, nil
}

// printResponse renders a manager response and converts failures into a
// non-zero exit without treating them as Go errors.
func printResponse(args Args, resp *llm.Response) error {
	if args.JSON {
		if err := printJSON(resp); err != nil {
			return err
		}
		if !resp.Success {
			os.Exit(1)
		}
		return nil
	}

	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Error (%d): %s\n", resp.ErrorCode, resp.ErrorMessage)
		os.Exit(1)
	}

	fmt.Println(resp.Text)
	if !args.Quiet {
		remote := "local"
		if resp.UsedRemote {
			remote = "remote"
		}
		fmt.Fprintf(os.Stderr, "[%s/%s %s, %d tokens, %s]\n",
			resp.ProviderID, resp.Model, remote, resp.Usage.Total, resp.Latency.Round(timePrecision))
	}
	return nil
}
