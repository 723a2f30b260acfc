package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML schema for a run. Every field maps onto the
// matching Overrides field; zero values are left for the mode preset to fill.
type FileConfig struct {
	Mode string `yaml:"mode"`

	Engine struct {
		Provider string `yaml:"provider"`
		BaseURL  string `yaml:"baseURL"`
		APIKey   string `yaml:"apiKey"`
	} `yaml:"engine"`

	LLM struct {
		BaseURL string `yaml:"baseURL"`
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	Reader struct {
		Type      string        `yaml:"type"`
		Timeout   time.Duration `yaml:"timeout"`
		MaxPages  int           `yaml:"maxPages"`
		UserAgent string        `yaml:"userAgent"`
	} `yaml:"reader"`

	Reranker struct {
		Type  string `yaml:"type"`
		Model string `yaml:"model"`
	} `yaml:"reranker"`

	Security struct {
		AllowedDomains  []string `yaml:"allowedDomains"`
		BlockedDomains  []string `yaml:"blockedDomains"`
		BlockedKeywords []string `yaml:"blockedKeywords"`
		PIIMasking      bool     `yaml:"piiMasking"`
		NetworkProfile  string   `yaml:"networkProfile"`
	} `yaml:"security"`

	MaxEvidence int `yaml:"maxEvidence"`
	MaxDepth    int `yaml:"maxDepth"`
	Concurrency int `yaml:"concurrency"`
	MaxRetries  int `yaml:"maxRetries"`
}

// LoadFile reads path as YAML into a Mode and Overrides pair, ready to pass
// to Build. A missing or empty field simply leaves the corresponding
// Overrides field at its zero value, so the mode preset still applies.
func LoadFile(path string) (Mode, Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Overrides{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return "", Overrides{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	o := Overrides{
		EngineProvider:  fc.Engine.Provider,
		EngineBaseURL:   fc.Engine.BaseURL,
		EngineAPIKey:    fc.Engine.APIKey,
		LLMBaseURL:      fc.LLM.BaseURL,
		LLMAPIKey:       fc.LLM.APIKey,
		LLMModel:        fc.LLM.Model,
		ReaderType:      ReaderType(fc.Reader.Type),
		ReaderTimeout:   fc.Reader.Timeout,
		ReaderMaxPages:  fc.Reader.MaxPages,
		ReaderUserAgent: fc.Reader.UserAgent,
		RerankerType:    RerankerType(fc.Reranker.Type),
		RerankerModel:   fc.Reranker.Model,
		MaxEvidence:     fc.MaxEvidence,
		MaxDepth:        fc.MaxDepth,
		Concurrency:     fc.Concurrency,
		MaxRetries:      fc.MaxRetries,
		Security: SecurityConfig{
			AllowedDomains:  fc.Security.AllowedDomains,
			BlockedDomains:  fc.Security.BlockedDomains,
			BlockedKeywords: fc.Security.BlockedKeywords,
			PIIMasking:      fc.Security.PIIMasking,
			NetworkProfile:  NetworkProfile(fc.Security.NetworkProfile),
		},
	}
	return Mode(fc.Mode), o, nil
}
