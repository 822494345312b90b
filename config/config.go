package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConnectorConfig describes a single named connector in the connectors file.
// Config is the generic key/value bag handed to the backend.
type ConnectorConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Mode   string                 `yaml:"mode"`
	Entity string                 `yaml:"entity"`
	Config map[string]interface{} `yaml:"config"`
}

type Config struct {
	Connectors []ConnectorConfig `yaml:"connectors"`
}

func (config *Config) GetConnectorConfig(name string) (*ConnectorConfig, error) {
	for i := range config.Connectors {
		if config.Connectors[i].Name == name {
			return &config.Connectors[i], nil
		}
	}

	return nil, ErrNotFound
}

// DefaultPath returns ~/.connplan/connectors.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "couldn't get user home directory")
	}
	return filepath.Join(home, ".connplan", "connectors.yaml"), nil
}

func ReadConfig(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't expand path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	var config Config

	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't decode yaml configuration")
	}

	names := make(map[string]struct{})
	for i := range config.Connectors {
		connector := &config.Connectors[i]
		if connector.Name == "" {
			return nil, errors.Errorf("connector with index %d has no name", i)
		}
		if _, ok := names[connector.Name]; ok {
			return nil, errors.Errorf("duplicate connector name: %s", connector.Name)
		}
		names[connector.Name] = struct{}{}
		if connector.Mode == "" {
			connector.Mode = "read"
		}
		if connector.Entity == "" {
			connector.Entity = "cells"
		}
		if connector.Config == nil {
			connector.Config = map[string]interface{}{}
		}
		cleanupMaps(connector.Config)
	}

	return &config, nil
}

// The yaml decoder creates maps of type map[interface{}]interface{} when keys aren't all strings.
// cleanupMaps will change them to map[string]interface{}.
func cleanupMaps(config map[string]interface{}) {
	for k, v := range config {
		config[k] = cleanupMapsRecursive(v)
	}
}

func cleanupMapsRecursive(config interface{}) interface{} {
	switch config := config.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{})
		for k, v := range config {
			out[fmt.Sprintf("%v", k)] = cleanupMapsRecursive(v)
		}
		return out
	case map[string]interface{}:
		for k, v := range config {
			config[k] = cleanupMapsRecursive(v)
		}
	case []interface{}:
		for i := range config {
			config[i] = cleanupMapsRecursive(config[i])
		}
	}

	return config
}
