// Copyright (C) 2025 vultisig
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates the settings every SDK component
// needs: the relay endpoint, the fast-vault endpoint, quorum polling
// behavior, and logging.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Relay       RelayConfig    `yaml:"relay" json:"relay"`
	FastVault   FastVaultConfig `yaml:"fast_vault" json:"fast_vault"`
	Quorum      QuorumConfig   `yaml:"quorum" json:"quorum"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
}

// RelayConfig configures the relay HTTP client (C1).
type RelayConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay" json:"retry_max_delay"`
}

// FastVaultConfig configures the fast-vault server client (C8).
type FastVaultConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// QuorumConfig configures party-session join/quorum polling (C5).
type QuorumConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// LoadFromFile loads a Config from a YAML (or, as a fallback, JSON) file
// and applies defaults to any unset field.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) >= 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setDefaults fills unset fields with the values the SDK ships with.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Relay.BaseURL == "" {
		cfg.Relay.BaseURL = "https://api.vultisig.com/router"
	}
	if cfg.Relay.RequestTimeout == 0 {
		cfg.Relay.RequestTimeout = 10 * time.Second
	}
	if cfg.Relay.MaxRetries == 0 {
		cfg.Relay.MaxRetries = 3
	}
	if cfg.Relay.RetryBaseDelay == 0 {
		cfg.Relay.RetryBaseDelay = 200 * time.Millisecond
	}
	if cfg.Relay.RetryMaxDelay == 0 {
		cfg.Relay.RetryMaxDelay = 5 * time.Second
	}

	if cfg.FastVault.BaseURL == "" {
		cfg.FastVault.BaseURL = "https://api.vultisig.com/vault"
	}
	if cfg.FastVault.RequestTimeout == 0 {
		cfg.FastVault.RequestTimeout = 10 * time.Second
	}

	if cfg.Quorum.DefaultTimeout == 0 {
		cfg.Quorum.DefaultTimeout = 60 * time.Second
	}
	if cfg.Quorum.PollInterval == 0 {
		cfg.Quorum.PollInterval = 2 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
