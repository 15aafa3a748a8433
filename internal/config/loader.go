package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file from the given path. The
// format is chosen by extension: .toml parses as TOML, everything else as
// YAML. Environment variables in the format ${VAR_NAME} are expanded
// before parsing.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return loadFromReader(file, toml.Unmarshal, "TOML")
	}
	return LoadFromReader(file)
}

// LoadFromReader reads and parses YAML configuration from an io.Reader.
// Environment variables in the format ${VAR_NAME} are expanded before
// parsing.
func LoadFromReader(r io.Reader) (*Config, error) {
	return loadFromReader(r, yaml.Unmarshal, "YAML")
}

func loadFromReader(r io.Reader, unmarshal func([]byte, any) error, format string) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	var cfg Config
	if err := unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", format, err)
	}

	return &cfg, nil
}
