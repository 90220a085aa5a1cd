// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared bootstrap for all command handlers: settings,
// secrets, provider registry, telemetry.
package cli

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/provider"
	"github.com/jeranaias/daemon-codex/internal/secrets"
	"github.com/jeranaias/daemon-codex/internal/telemetry"
)

// Runtime bundles the long-lived pieces a command handler needs.
type Runtime struct {
	Settings *config.Settings
	Keeper   *secrets.Keeper
	Manager  *provider.Manager
	Store    *telemetry.UsageStore
}

// NewRuntime loads configuration, decrypts stored API keys, builds the
// provider registry, and applies the privacy mode.
//
// SECURITY: remote mode needs confirmation. A persisted remote_allowed
// setting counts (the config set path required --confirm to write it);
// the --allow-remote flag confirms for this invocation only.
func NewRuntime(args Args) (*Runtime, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	keeper, err := secrets.OpenKeyFile(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	decryptKeys(settings, keeper)

	rt := &Runtime{
		Settings: settings,
		Keeper:   keeper,
		Manager:  provider.NewManager(),
	}

	if settings.Telemetry.Enabled {
		path := settings.Telemetry.DBPath
		if path == "" {
			path = filepath.Join(dir, "usage.db")
		}
		store, err := telemetry.OpenUsageStore(path)
		if err != nil {
			// RELIABILITY: usage recording is best-effort; a broken
			// store must not take the whole CLI down.
			log.Printf("telemetry disabled: %v", err)
		} else {
			rt.Store = store
			rt.Manager.WithTelemetry(store)
		}
	}

	rt.registerProviders(args)
	return rt, nil
}

// Close releases runtime resources.
func (rt *Runtime) Close() {
	if rt.Store != nil {
		rt.Store.Close()
	}
}

// decryptKeys resolves ENC:-prefixed API keys in place. Plaintext values
// pass through untouched; values that fail to decrypt are dropped so a
// garbage key never reaches the wire.
func decryptKeys(s *config.Settings, keeper *secrets.Keeper) {
	if v, err := keeper.DecryptString(s.OpenAI.APIKey); err != nil {
		log.Printf("could not decrypt openai.api_key: %v", err)
		s.OpenAI.APIKey = ""
	} else {
		s.OpenAI.APIKey = v
	}
	if v, err := keeper.DecryptString(s.OllamaCloud.APIKey); err != nil {
		log.Printf("could not decrypt ollama_cloud.api_key: %v", err)
		s.OllamaCloud.APIKey = ""
	} else {
		s.OllamaCloud.APIKey = v
	}
}

// registerProviders fills the manager registry with every provider the
// settings describe, applies the privacy mode, and activates the
// configured choice.
func (rt *Runtime) registerProviders(args Args) {
	s := rt.Settings
	m := rt.Manager

	m.Register(provider.NewLocalProvider(localModelPath(s), nil))
	m.Register(provider.NewOpenAIProvider(s.OpenAI.APIKey, s.OpenAI.Model, nil))
	m.Register(provider.NewOllamaCloudProvider(provider.OllamaCloudConfig{
		BaseURL: s.OllamaCloud.BaseURL,
		APIKey:  s.OllamaCloud.APIKey,
		Model:   s.OllamaCloud.Model,
		Timeout: time.Duration(s.OllamaCloud.TimeoutSecs) * time.Second,
	}, nil))

	if args.AllowRemote || s.Privacy.Mode == "remote_allowed" {
		m.SetPrivacyMode(provider.ModeRemoteAllowed, true)
	}

	if active := provider.FromSettings(s, provider.Deps{}); active != nil {
		m.Register(active)
		if !m.SetActive(active.ID()) && !args.Quiet {
			log.Printf("provider %q is blocked by the current privacy mode", active.ID())
		}
	}
}

// localModelPath resolves the on-device model artifact for the registry
// entry: the explicit setting first, then the active custom model.
func localModelPath(s *config.Settings) string {
	if s.Local.ModelPath != "" {
		return s.Local.ModelPath
	}
	if cm := s.ActiveCustomModel(); cm != nil {
		return cm.Path
	}
	return ""
}
