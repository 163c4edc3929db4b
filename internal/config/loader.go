package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RAGD_"

// Load loads configuration with the following precedence, highest first:
//
//  1. Environment variables (RAGD_QDRANT_HOST, RAGD_OPENAI_API_KEY, ...)
//  2. YAML config file (configPath, skipped when empty or absent)
//  3. Defaults
//
// Environment variables are mapped by stripping the RAGD_ prefix,
// lowercasing, and replacing the first underscore with a dot:
//
//	RAGD_QDRANT_HOST        -> qdrant.host
//	RAGD_OPENAI_API_KEY     -> openai.api_key
//	RAGD_CACHE_TTL          -> cache.ttl
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// transformEnvKey maps RAGD_SECTION_FIELD_NAME to section.field_name.
func transformEnvKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if i := strings.Index(key, "_"); i > 0 {
		return key[:i] + "." + key[i+1:]
	}
	return key
}
