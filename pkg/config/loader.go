package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a settings file from the given path.
// The format is determined by the file extension:
// - .toml for TOML (the documented default, Settings.toml)
// - .yaml or .yml for YAML
// - .json for JSON
func Load(ctx context.Context, path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	var settings *Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		settings, err = loadTOML(data)
	case ".yaml", ".yml":
		settings, err = loadYAML(data)
	case ".json":
		settings, err = loadJSON(data)
	default:
		return nil, errors.Errorf("unsupported settings extension %q", filepath.Ext(path))
	}

	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}

	if err := Validate(ctx, settings); err != nil {
		return nil, errors.Errorf("validating settings: %w", err)
	}

	return settings, nil
}

// loadTOML loads settings from TOML data
func loadTOML(data []byte) (*Settings, error) {
	var s Settings
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Errorf("parsing TOML: %w", err)
	}
	return &s, nil
}

// loadYAML loads settings from YAML data
func loadYAML(data []byte) (*Settings, error) {
	var s Settings
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &s, nil
}

// loadJSON loads settings from JSON data
func loadJSON(data []byte) (*Settings, error) {
	var s Settings
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &s, nil
}
