// Package config loads runtime settings for the SmartStudy CLI.
//
// Sources are layered, later ones overriding earlier: built-in defaults,
// a YAML config file, then environment variables (STUDYCLI_ prefix,
// double underscores as section separators, e.g. STUDYCLI_SERVER__BASE_URL).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STUDYCLI_"

// Config holds runtime settings for the CLI.
type Config struct {
	Server struct {
		// BaseURL is the backend root, e.g. https://padho-abhi.onrender.com.
		BaseURL string        `koanf:"base_url" validate:"required,url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"server"`

	Database struct {
		// Path of the local sqlite state database.
		Path string `koanf:"path" validate:"required"`
	} `koanf:"database"`

	Activity struct {
		// PingInterval between study-time progress reports; 0 disables them.
		PingInterval time.Duration `koanf:"ping_interval"`
	} `koanf:"activity"`

	Log struct {
		Level string `koanf:"level" validate:"oneof=debug info warn error"`
	} `koanf:"log"`

	// LaunchLink is an optional emailed deep link (verification or
	// password reset) the app was opened with.
	LaunchLink string `koanf:"launch_link"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.base_url":        "http://localhost:8000",
		"server.timeout":         "15s",
		"database.path":          "smartstudy.db",
		"activity.ping_interval": "60s",
		"log.level":              "info",
	}
}

func configFileSearchPaths() []string {
	paths := []string{"studycli.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "studycli", "config.yaml"))
	}
	return paths
}

// Load builds the configuration from all sources and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		return path
	}
	for _, path := range configFileSearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
