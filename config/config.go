package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of every environment variable read by Load.
	EnvPrefix = "SMASH_"

	// EnvRegion and EnvToken bootstrap the default region and credential.
	EnvRegion = EnvPrefix + "REGION"
	EnvToken  = EnvPrefix + "TOKEN"

	// DefaultFile is the optional YAML file read by Load from the working directory.
	DefaultFile = "smash.yaml"
)

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. smash.yaml in the working directory, when present
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if _, err := os.Stat(DefaultFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return k.Load(file.Provider(DefaultFile), yaml.Parser())
	})
}

// LoadFile is like Load but reads the YAML file at path, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		return k.Load(file.Provider(path), yaml.Parser())
	})
}

// LoadBytes is like Load but reads YAML from data instead of a file.
func LoadBytes(data []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		return k.Load(rawbytes.Provider(data), yaml.Parser())
	})
}

// Default returns a configuration holding only the default values.
// Environment variables are not consulted.
func Default() *Config {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		panic(fmt.Errorf("failed to load defaults: %w", err))
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Errorf("failed to unmarshal defaults: %w", err))
	}
	cfg.k = k
	return &cfg
}

func load(source func(k *koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := source(k); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// transformEnv maps SMASH_CLIENT_TIMEOUT to client.timeout. SMASH_REGION and
// SMASH_TOKEN are shorthands for the client section.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	switch key {
	case "region", "token":
		return "client." + key, value
	}
	return strings.ReplaceAll(key, "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":            "30s",
		"client.maxrefreshattempts": 1,
		"client.logpayloads":        false,
		"client.maxpayloadlogbytes": 1024,
		"client.rate.limit":         0,
		"client.rate.burst":         0,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
