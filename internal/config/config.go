// Package config loads the receipt parsing rules from a YAML file
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zombor/billlens/internal/parsing"
)

// Config is the billlens rules file
type Config struct {
	// Merchants is the known-merchant catalog, matched in order
	Merchants []string `yaml:"merchants"`
	// SummaryKeywords mark lines that are totals or fees, never items
	SummaryKeywords []string `yaml:"summary_keywords"`
	// Currency is assumed when a request does not name one
	Currency string `yaml:"currency,omitempty"`
}

// Load reads a rules file from disk. Sections missing from the file keep
// the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	def := Default()
	if cfg.Merchants == nil {
		cfg.Merchants = def.Merchants
	}
	if cfg.SummaryKeywords == nil {
		cfg.SummaryKeywords = def.SummaryKeywords
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	return &cfg, nil
}

// Save writes a Config as YAML
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns the built-in catalog and keyword list
func Default() *Config {
	return &Config{
		Merchants:       append([]string(nil), parsing.DefaultKnownMerchants...),
		SummaryKeywords: append([]string(nil), parsing.DefaultSummaryKeywords...),
		Currency:        parsing.DefaultCurrency,
	}
}

// LoadOrDefault loads path, or returns the defaults when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Rules builds the immutable parsing rules from the file's lists
func (c *Config) Rules() *parsing.Rules {
	return parsing.NewRules(c.Merchants, c.SummaryKeywords)
}
