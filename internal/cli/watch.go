// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch.go - "codex watch" command: long-running mode that hot-reloads
// settings while another process (the GUI, an editor) changes them.
package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/provider"
	"github.com/jeranaias/daemon-codex/internal/telemetry"
)

// HandleWatch implements "codex watch". It keeps the provider registry
// alive, follows config-file edits through the fsnotify watcher, and
// echoes usage events to the log until interrupted.
func HandleWatch(args Args) error {
	rt, err := NewRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Long-running mode is where event logging earns its keep: fan out
	// to both the log and the usage store (when one is open).
	sink := telemetry.Sink(telemetry.LogSink{})
	if rt.Store != nil {
		sink = telemetry.MultiSink{telemetry.LogSink{}, rt.Store}
	}
	rt.Manager.WithTelemetry(sink)

	path, err := config.PathTOML()
	if err != nil {
		return err
	}
	watcher, err := config.NewWatcher(path, func(s *config.Settings) {
		reloadSettings(rt, args, s)
	})
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	if err := watcher.Watch(); err != nil {
		return err
	}
	defer watcher.Close()

	if !args.Quiet {
		fmt.Printf("Watching %s (privacy mode: %s). Ctrl-C to stop.\n",
			path, rt.Manager.PrivacyMode())
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	return nil
}

// reloadSettings swaps freshly loaded settings into a running Runtime:
// stored keys are decrypted, the registry is rebuilt, and the privacy
// mode and active provider are re-derived. Runs on the watcher
// goroutine; the Manager's own locking makes that safe.
func reloadSettings(rt *Runtime, args Args, s *config.Settings) {
	if rt.Keeper != nil {
		decryptKeys(s, rt.Keeper)
	}
	rt.Settings = s
	rt.registerProviders(args)

	// A reload that drops remote_allowed must revoke network access
	// immediately, not on the next restart.
	if !args.AllowRemote && s.Privacy.Mode != "remote_allowed" {
		rt.Manager.SetPrivacyMode(provider.ModeLocalOnly, false)
	}
	log.Printf("config reloaded: llm_choice=%s privacy=%s", s.LLMChoice, s.Privacy.Mode)
}
