// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/daemon-codex/internal/config"
	"github.com/jeranaias/daemon-codex/internal/llm"
)

// =============================================================================
// PROVIDER CHOICE
// =============================================================================

// Choice selects which provider the factory builds.
type Choice int

const (
	ChoiceUnset Choice = iota
	ChoiceOpenAI
	ChoiceLocal3B
	ChoiceLocal7B
	ChoiceCustomLocal
	ChoiceOllamaCloud
)

// ParseChoice maps the configuration string to a Choice. Unknown
// strings map to ChoiceUnset.
func ParseChoice(s string) Choice {
	switch strings.ToLower(s) {
	case "openai":
		return ChoiceOpenAI
	case "local_3b":
		return ChoiceLocal3B
	case "local_7b":
		return ChoiceLocal7B
	case "custom_local":
		return ChoiceCustomLocal
	case "ollama_cloud":
		return ChoiceOllamaCloud
	default:
		return ChoiceUnset
	}
}

func (c Choice) String() string {
	switch c {
	case ChoiceOpenAI:
		return "openai"
	case ChoiceLocal3B:
		return "local_3b"
	case ChoiceLocal7B:
		return "local_7b"
	case ChoiceCustomLocal:
		return "custom_local"
	case ChoiceOllamaCloud:
		return "ollama_cloud"
	default:
		return "unset"
	}
}

// =============================================================================
// FACTORY
// =============================================================================

// Deps are the collaborators injected into built providers. Zero values
// select the production defaults.
type Deps struct {
	// Engine serves local inference.
	Engine llm.Client
	// Transport executes self-hosted wire calls.
	Transport TransportFunc
}

// FromSettings builds the provider the settings select. It returns nil,
// without an error, when required configuration for the chosen kind is
// missing; the caller decides how to surface that absence.
func FromSettings(s *config.Settings, deps Deps) Provider {
	switch ParseChoice(s.LLMChoice) {
	case ChoiceOpenAI:
		if s.OpenAI.APIKey == "" {
			return nil
		}
		return NewOpenAIProvider(s.OpenAI.APIKey, s.OpenAI.Model, nil)

	case ChoiceCustomLocal:
		custom := s.ActiveCustomModel()
		if custom == nil || custom.Path == "" {
			return nil
		}
		return NewLocalProvider(custom.Path, deps.Engine)

	case ChoiceLocal3B, ChoiceLocal7B:
		envVar := "CODEX_LOCAL_LLM_3B_DOWNLOAD_URL"
		if ParseChoice(s.LLMChoice) == ChoiceLocal7B {
			envVar = "CODEX_LOCAL_LLM_7B_DOWNLOAD_URL"
		}
		downloadURL := os.Getenv(envVar)
		if downloadURL == "" {
			return nil
		}
		path, ok := defaultModelPath(downloadURL)
		if !ok {
			return nil
		}
		return NewLocalProvider(path, deps.Engine)

	case ChoiceOllamaCloud:
		if s.OllamaCloud.BaseURL == "" || s.OllamaCloud.Model == "" {
			return nil
		}
		return NewOllamaCloudProvider(OllamaCloudConfig{
			BaseURL: s.OllamaCloud.BaseURL,
			APIKey:  s.OllamaCloud.APIKey,
			Model:   s.OllamaCloud.Model,
			Timeout: time.Duration(s.OllamaCloud.TimeoutSecs) * time.Second,
		}, deps.Transport)

	default:
		return nil
	}
}

// defaultModelPath maps a model download URL to its on-disk location
// under ~/.codex/models, keyed by the URL's file name.
func defaultModelPath(downloadURL string) (string, bool) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", false
	}
	name := filepath.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "models", name), true
}
