package core

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jo-hoe/imagegallery/internal/storage"
	"gopkg.in/yaml.v3"
)

type API struct {
	BaseURL string `yaml:"baseURL"`
}

type Form struct {
	StateTTL time.Duration `yaml:"stateTTL"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

type ServiceConfig struct {
	Port    int            `yaml:"port"`
	API     API            `yaml:"api"`
	Storage storage.Config `yaml:"storage"`
	Form    Form           `yaml:"form"`
	Cache   Cache          `yaml:"cache"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig ensures required fields are set
func validateConfig(config *ServiceConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.API.BaseURL == "" {
		return fmt.Errorf("api.baseURL is required")
	}
	if _, err := url.ParseRequestURI(config.API.BaseURL); err != nil {
		return fmt.Errorf("api.baseURL is not a valid url: %w", err)
	}

	if config.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required")
	}
	if config.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if config.Form.StateTTL < 0 {
		return fmt.Errorf("form.stateTTL must not be negative")
	}
	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	return nil
}
