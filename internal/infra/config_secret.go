package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig matches the structure of secrets.yaml in the workspace directory.
type SecretConfig struct {
	API struct {
		CoinGecko struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"coingecko"`
		ExchangeRate struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"exchange_rate"`
	} `yaml:"api"`
}

// LoadSecretConfig loads API keys from a separate yaml file.
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// Apply fills keys that are still empty in cfg. Environment variables already
// applied by LoadConfig keep priority.
func (s *SecretConfig) Apply(cfg *Config) {
	if cfg.API.CoinGecko.APIKey == "" {
		cfg.API.CoinGecko.APIKey = s.API.CoinGecko.APIKey
	}
	if cfg.API.ExchangeRate.APIKey == "" {
		cfg.API.ExchangeRate.APIKey = s.API.ExchangeRate.APIKey
	}
}
