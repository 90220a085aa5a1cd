// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/daemon-codex/internal/util"
)

// =============================================================================
// SETTINGS STRUCTURES
// =============================================================================

// Settings is the complete daemon-codex configuration.
type Settings struct {
	Version string `toml:"version" json:"version"`

	// LLMChoice selects which provider the factory builds:
	// "unset", "openai", "local_3b", "local_7b", "custom_local", "ollama_cloud"
	LLMChoice string `toml:"llm_choice" json:"llm_choice"`

	Privacy     PrivacySettings     `toml:"privacy" json:"privacy"`
	OpenAI      OpenAISettings      `toml:"openai" json:"openai"`
	OllamaCloud OllamaCloudSettings `toml:"ollama_cloud" json:"ollama_cloud"`
	Local       LocalSettings       `toml:"local" json:"local"`
	Telemetry   TelemetrySettings   `toml:"telemetry" json:"telemetry"`

	// CustomModels are user-registered local model files.
	CustomModels   []CustomModel `toml:"custom_models" json:"custom_models"`
	ActiveCustomID string        `toml:"active_custom_id" json:"active_custom_id"`
}

// PrivacySettings controls what may leave the machine.
type PrivacySettings struct {
	// Mode is the process-wide privacy mode: "local_only" or "remote_allowed".
	// "remote_allowed" only takes effect after explicit user confirmation.
	Mode string `toml:"mode" json:"mode"`
}

// OpenAISettings configures the commercial remote provider.
type OpenAISettings struct {
	// APIKey may be plaintext or an ENC:-prefixed encrypted value.
	APIKey string `toml:"api_key" json:"api_key"`
	Model  string `toml:"model" json:"model"`
}

// OllamaCloudSettings configures the self-hosted remote provider.
type OllamaCloudSettings struct {
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey may be plaintext or an ENC:-prefixed encrypted value.
	APIKey string `toml:"api_key" json:"api_key"`
	Model  string `toml:"model" json:"model"`

	TimeoutSecs   int `toml:"timeout_secs" json:"timeout_secs"`
	MaxRetries    int `toml:"max_retries" json:"max_retries"`
	BackoffBaseMS int `toml:"backoff_base_ms" json:"backoff_base_ms"`
}

// LocalSettings configures the on-device provider.
type LocalSettings struct {
	// ModelPath is the model artifact on disk. Empty means not configured
	// and the factory falls back to the built-in download locations.
	ModelPath string `toml:"model_path" json:"model_path"`
}

// TelemetrySettings configures local usage recording. Nothing is ever
// transmitted; the store is a SQLite file under the config directory.
type TelemetrySettings struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	DBPath  string `toml:"db_path" json:"db_path"`
}

// CustomModel is a user-registered local model file.
type CustomModel struct {
	ID   string `toml:"id" json:"id"`
	Name string `toml:"name" json:"name"`
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in settings. Privacy mode defaults to
// local_only so a fresh install never reaches the network.
func Default() *Settings {
	return &Settings{
		Version:   "1",
		LLMChoice: "unset",
		Privacy: PrivacySettings{
			Mode: "local_only",
		},
		OpenAI: OpenAISettings{
			Model: "gpt-4o-mini",
		},
		OllamaCloud: OllamaCloudSettings{
			BaseURL:       "https://ollama.com",
			TimeoutSecs:   60,
			MaxRetries:    3,
			BackoffBaseMS: 500,
		},
		Telemetry: TelemetrySettings{
			Enabled: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the daemon-codex configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

// PathTOML returns the TOML config file path.
func PathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the legacy JSON config file path.
func PathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the config directory if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// ensureSecurePermissions fixes config file permissions on load.
// SECURITY: Config files hold API keys and must be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads settings from the config directory. TOML is tried first,
// then legacy JSON, then built-in defaults. Environment overrides apply
// last, followed by validation.
func Load() (*Settings, error) {
	tomlPath, err := PathTOML()
	if err != nil {
		return nil, err
	}
	jsonPath, _ := PathJSON()

	for _, candidate := range []struct {
		path string
		load func(*Settings, string) error
	}{
		{tomlPath, LoadTOML},
		{jsonPath, LoadJSON},
	} {
		if candidate.path == "" {
			continue
		}
		if _, statErr := os.Stat(candidate.path); statErr != nil {
			continue
		}
		s := Default()
		if err := candidate.load(s, candidate.path); err != nil {
			return nil, err
		}
		return finish(s)
	}

	return finish(Default())
}

// finish applies env overrides, clamping, and validation to loaded
// settings.
func finish(s *Settings) (*Settings, error) {
	s.ApplyEnvOverrides()
	s.clamp()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// LoadTOML decodes a TOML settings file over s.
func LoadTOML(s *Settings, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, s); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a legacy JSON settings file over s.
func LoadJSON(s *Settings, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath reads settings from an explicit file, choosing the codec
// by extension.
func LoadFromPath(path string) (*Settings, error) {
	s := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(s, path)
	} else {
		err = LoadTOML(s, path)
	}
	if err != nil {
		return nil, err
	}
	return finish(s)
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes settings to the default TOML path.
func Save(s *Settings) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(s, path)
}

// SaveTOML writes settings to a TOML file with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents a torn config on crash.
func SaveTOML(s *Settings, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# daemon-codex configuration file\n")
	buf.WriteString("# Edit with care; values are validated on load.\n\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies CODEX_* environment variables over the
// loaded settings.
//
// Supported variables:
//   - CODEX_LLM_CHOICE
//   - CODEX_PRIVACY_MODE
//   - CODEX_OPENAI_API_KEY, CODEX_OPENAI_MODEL
//   - CODEX_OLLAMA_BASE_URL, CODEX_OLLAMA_API_KEY, CODEX_OLLAMA_MODEL
//   - CODEX_LOCAL_MODEL_PATH
//   - CODEX_TELEMETRY (0/false disables)
func (s *Settings) ApplyEnvOverrides() {
	if v := os.Getenv("CODEX_LLM_CHOICE"); v != "" {
		s.LLMChoice = v
	}
	if v := os.Getenv("CODEX_PRIVACY_MODE"); v != "" {
		s.Privacy.Mode = v
	}
	if v := os.Getenv("CODEX_OPENAI_API_KEY"); v != "" {
		s.OpenAI.APIKey = v
	}
	if v := os.Getenv("CODEX_OPENAI_MODEL"); v != "" {
		s.OpenAI.Model = v
	}
	if v := os.Getenv("CODEX_OLLAMA_BASE_URL"); v != "" {
		s.OllamaCloud.BaseURL = v
	}
	if v := os.Getenv("CODEX_OLLAMA_API_KEY"); v != "" {
		s.OllamaCloud.APIKey = v
	}
	if v := os.Getenv("CODEX_OLLAMA_MODEL"); v != "" {
		s.OllamaCloud.Model = v
	}
	if v := os.Getenv("CODEX_LOCAL_MODEL_PATH"); v != "" {
		s.Local.ModelPath = v
	}
	if v := os.Getenv("CODEX_TELEMETRY"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			s.Telemetry.Enabled = enabled
		}
	}
}

// clamp pulls out-of-range numeric settings back to sane bounds rather
// than failing the load.
func (s *Settings) clamp() {
	if s.OllamaCloud.TimeoutSecs <= 0 {
		s.OllamaCloud.TimeoutSecs = 60
	}
	if s.OllamaCloud.TimeoutSecs > 600 {
		s.OllamaCloud.TimeoutSecs = 600
	}
	if s.OllamaCloud.MaxRetries < 0 {
		s.OllamaCloud.MaxRetries = 0
	}
	if s.OllamaCloud.MaxRetries > 10 {
		s.OllamaCloud.MaxRetries = 10
	}
	if s.OllamaCloud.BackoffBaseMS <= 0 {
		s.OllamaCloud.BackoffBaseMS = 500
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// validChoices mirrors what the provider factory accepts.
var validChoices = map[string]bool{
	"unset": true, "openai": true, "local_3b": true,
	"local_7b": true, "custom_local": true, "ollama_cloud": true,
}

// Validate checks the settings and returns all errors at once.
func (s *Settings) Validate() error {
	var errs ValidateErrors

	if !validChoices[strings.ToLower(s.LLMChoice)] {
		errs = append(errs, ValidationError{
			Field:   "llm_choice",
			Message: fmt.Sprintf("invalid choice %q, must be one of: unset, openai, local_3b, local_7b, custom_local, ollama_cloud", s.LLMChoice),
		})
	}

	mode := strings.ToLower(s.Privacy.Mode)
	if mode != "local_only" && mode != "remote_allowed" {
		errs = append(errs, ValidationError{
			Field:   "privacy.mode",
			Message: fmt.Sprintf("invalid mode %q, must be local_only or remote_allowed", s.Privacy.Mode),
		})
	}

	if s.OllamaCloud.BaseURL != "" && !strings.HasPrefix(s.OllamaCloud.BaseURL, "http://") && !strings.HasPrefix(s.OllamaCloud.BaseURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "ollama_cloud.base_url",
			Message: "must start with http:// or https://",
		})
	}

	seen := make(map[string]bool, len(s.CustomModels))
	for i, m := range s.CustomModels {
		if m.ID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("custom_models[%d].id", i),
				Message: "id is required",
			})
			continue
		}
		if seen[m.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("custom_models[%d].id", i),
				Message: fmt.Sprintf("duplicate id %q", m.ID),
			})
		}
		seen[m.ID] = true
	}
	if s.ActiveCustomID != "" && !seen[s.ActiveCustomID] {
		errs = append(errs, ValidationError{
			Field:   "active_custom_id",
			Message: fmt.Sprintf("no custom model with id %q", s.ActiveCustomID),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ActiveCustomModel returns the custom model selected by ActiveCustomID,
// or nil when none is selected.
func (s *Settings) ActiveCustomModel() *CustomModel {
	if s.ActiveCustomID == "" {
		return nil
	}
	for i := range s.CustomModels {
		if s.CustomModels[i].ID == s.ActiveCustomID {
			return &s.CustomModels[i]
		}
	}
	return nil
}
