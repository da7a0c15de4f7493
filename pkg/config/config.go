package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIKey represents an API key configuration
type APIKey struct {
	Role   string `yaml:"role"`
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port      string `yaml:"port"`
	PublicURL string `yaml:"public_url,omitempty"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig holds the postgres connection settings
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds optional redis cache settings. When Addr is empty
// the service falls back to the in-memory cache.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// RequiredModule declares one module a blueprint version expects
type RequiredModule struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Optional bool   `yaml:"optional,omitempty"`
}

// ModuleSet maps a blueprint version to its expected modules.
// Declared as data so new blueprint versions ship without code changes.
type ModuleSet struct {
	Version string           `yaml:"version"`
	Modules []RequiredModule `yaml:"modules"`
}

// BlueprintConfig holds blueprint-wide settings
type BlueprintConfig struct {
	ModuleSets []ModuleSet `yaml:"module_sets"`
}

// AIConfig holds the upstream content-generation endpoint settings
type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key,omitempty"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Config represents the service configuration file
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	APIKeys   []APIKey        `yaml:"api_keys"`
	Blueprint BlueprintConfig `yaml:"blueprint"`
	AI        AIConfig        `yaml:"ai"`
}

// LoadConfig loads the service configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o"
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}

	return &cfg, nil
}

// FindAPIKeyByKey finds an API key by its key value
func FindAPIKeyByKey(apiKeys []APIKey, key string) (*APIKey, bool) {
	for _, ak := range apiKeys {
		if ak.APIKey == key {
			return &ak, true
		}
	}
	return nil, false
}

// ModulesForVersion returns the required-module set declared for the
// given blueprint version.
func (c *BlueprintConfig) ModulesForVersion(version string) ([]RequiredModule, bool) {
	for _, set := range c.ModuleSets {
		if set.Version == version {
			return set.Modules, true
		}
	}
	return nil, false
}

// VersionIntroducing returns the lowest declared version whose module
// set contains the given module id.
func (c *BlueprintConfig) VersionIntroducing(moduleID string) (string, bool) {
	for _, set := range c.ModuleSets {
		for _, m := range set.Modules {
			if m.ID == moduleID {
				return set.Version, true
			}
		}
	}
	return "", false
}
