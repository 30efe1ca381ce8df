// Package config loads the YAML configuration for the dispatcher and
// classifier binaries: hosts, ssh credentials, queue server address, and
// artifact paths. Every setting except the host list can be overridden by
// a CRACKEN_* environment variable.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// HostEntry names one worker host and the ssh details needed to reach it.
type HostEntry struct {
	Addr string `yaml:"addr"`
	User string `yaml:"user"`
}

// DispatcherConfig configures a cracken-head run: the worker fleet, where
// the queue server binds, and the remote bootstrap environment.
type DispatcherConfig struct {
	Hosts      []HostEntry `yaml:"hosts"`
	ServerAddr string      `yaml:"server_addr"`
	WorkDir    string      `yaml:"work_dir"`
	VenvDir    string      `yaml:"venv_dir"`
	SSHKeyPath string      `yaml:"ssh_key_path"`
	JoinTimeoutSeconds int `yaml:"join_timeout_seconds"`
}

// ClassifierConfig configures a cracken-classify run: where the training
// corpus lives and where the three artifacts should be written.
type ClassifierConfig struct {
	CorpusPath         string `yaml:"corpus_path"`
	BaseStructuresPath string `yaml:"base_structures_path"`
	GrammarPath        string `yaml:"grammar_path"`
	GlossaryPath       string `yaml:"glossary_path"`
}

// LoadDispatcherConfig reads and parses a DispatcherConfig from path, then
// applies environment variable overrides.
func LoadDispatcherConfig(path string) (DispatcherConfig, error) {
	var cfg DispatcherConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading dispatcher config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing dispatcher config %s: %w", path, err)
	}

	cfg.ServerAddr = getEnv("CRACKEN_SERVER_ADDR", cfg.ServerAddr)
	cfg.WorkDir = getEnv("CRACKEN_WORK_DIR", cfg.WorkDir)
	cfg.VenvDir = getEnv("CRACKEN_VENV_DIR", cfg.VenvDir)
	cfg.SSHKeyPath = getEnv("CRACKEN_SSH_KEY_PATH", cfg.SSHKeyPath)
	cfg.JoinTimeoutSeconds = getEnvInt("CRACKEN_JOIN_TIMEOUT_SECONDS", cfg.JoinTimeoutSeconds)

	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "0.0.0.0:9000"
	}
	if cfg.JoinTimeoutSeconds == 0 {
		cfg.JoinTimeoutSeconds = 3600
	}
	return cfg, nil
}

// LoadClassifierConfig reads and parses a ClassifierConfig from path, then
// applies environment variable overrides.
func LoadClassifierConfig(path string) (ClassifierConfig, error) {
	var cfg ClassifierConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading classifier config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing classifier config %s: %w", path, err)
	}

	cfg.CorpusPath = getEnv("CRACKEN_CORPUS_PATH", cfg.CorpusPath)
	cfg.BaseStructuresPath = getEnv("CRACKEN_BASE_STRUCTURES_PATH", cfg.BaseStructuresPath)
	cfg.GrammarPath = getEnv("CRACKEN_GRAMMAR_PATH", cfg.GrammarPath)
	cfg.GlossaryPath = getEnv("CRACKEN_GLOSSARY_PATH", cfg.GlossaryPath)
	return cfg, nil
}

// getEnv gets an environment variable with a default fallback used when
// the variable is unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
