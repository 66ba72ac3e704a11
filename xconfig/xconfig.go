// Package xconfig models the validator's YAML configuration file
// (spec.md §6.C): the primary_key provider/inline_provider settings that
// apply across every PrimaryKey declaration that opts into them.
package xconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PrimaryKeyConfig is the `primary_key:` top-level section.
type PrimaryKeyConfig struct {
	// InlineProvider maps a schema_id to a literal list of primary-key
	// values (strings, or multi-member tuples as nested lists), merged
	// into the same indices as locally-extracted and provider-fetched
	// tuples (spec.md §6.C: "multiple providers and inline providers may
	// coexist and are unioned").
	InlineProvider map[string][]any `yaml:"inline_provider"`
	Provider       []string         `yaml:"provider"`
	AllowProviderDuplicates bool    `yaml:"allow_provider_duplicates"`
	SchemaPrefix            string `yaml:"schema_prefix"`
	Accept                  string `yaml:"accept"`
}

// Config is the root of the configuration file.
type Config struct {
	PrimaryKey PrimaryKeyConfig `yaml:"primary_key"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// AcceptOrDefault returns the configured Accept header, defaulting to
// "text/uri-list" per spec.md §4.H.
func (c PrimaryKeyConfig) AcceptOrDefault() string {
	if c.Accept != "" {
		return c.Accept
	}
	return "text/uri-list"
}

// InlineProviderFor returns the literal inline-provider tuples configured
// for schemaID, or nil if none were configured.
func (c PrimaryKeyConfig) InlineProviderFor(schemaID string) []any {
	return c.InlineProvider[schemaID]
}
