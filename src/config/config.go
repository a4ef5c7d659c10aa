package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file. Environment
// variables (plus a .env file when one exists) override file values.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. Overlay environment variables. A missing .env file is fine.
	_ = godotenv.Load()
	if err := envconfig.Process("", &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
		if c.Storage.DBSchema == "" {
			return fmt.Errorf("schema cannot be empty for postgres")
		}
	case "none":
		// Relational loading disabled
	default:
		return fmt.Errorf("unknown database type: '%s' (must be sqlite, postgres or none)", c.Storage.DBType)
	}

	// Validate Analysis configuration
	if c.Analysis.WindowSize < 2 {
		return fmt.Errorf("window size must be at least 2, got %d", c.Analysis.WindowSize)
	}
	if c.Analysis.LookbackDays < 0 {
		return fmt.Errorf("lookback days cannot be negative")
	}

	// Validate DataSource configuration
	if c.DataSource.PricesPath == "" {
		return fmt.Errorf("prices path cannot be empty")
	}
	if c.DataSource.DataRetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}

	// Validate Schedule configuration
	if c.Schedule.IntervalMinutes <= 0 {
		return fmt.Errorf("schedule interval must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
