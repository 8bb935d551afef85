package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nimbusbot/nimbus/common/environment"
	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
	"github.com/nimbusbot/nimbus/internal/nimbus/matrix"
	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
)

// Config holds the assembled application configuration.
type Config struct {
	DatabasePath string
	Matrix       matrix.Config
	NLU          nlu.Config
	Azure        azure.Config
	LogLevel     string
}

// fileConfig is the optional YAML config file pointed at by NIMBUS_CONFIG.
// Environment variables override anything set here.
type fileConfig struct {
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	Matrix struct {
		Homeserver   string   `yaml:"homeserver"`
		UserID       string   `yaml:"user_id"`
		AccessToken  string   `yaml:"access_token"`
		AllowedRooms []string `yaml:"allowed_rooms"`
	} `yaml:"matrix"`

	NLU struct {
		Endpoint string `yaml:"endpoint"`
		AppID    string `yaml:"app_id"`
		Key      string `yaml:"key"`
	} `yaml:"nlu"`

	Azure struct {
		TenantID string `yaml:"tenant_id"`
		Location string `yaml:"location"`
	} `yaml:"azure"`
}

// LoadConfig builds the configuration from the optional NIMBUS_CONFIG YAML
// file layered under environment variables, then validates it.
func LoadConfig() (*Config, error) {
	var fc fileConfig
	if path, ok := environment.String("NIMBUS_CONFIG"); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", orDefault(fc.DatabasePath, "./nimbus.db")),
		LogLevel:     environment.StringOr("NIMBUS_LOG_LEVEL", orDefault(fc.LogLevel, "info")),
		Matrix: matrix.Config{
			Homeserver:   environment.StringOr("MATRIX_HOMESERVER", fc.Matrix.Homeserver),
			UserID:       environment.StringOr("MATRIX_USER_ID", fc.Matrix.UserID),
			AccessToken:  environment.StringOr("MATRIX_ACCESS_TOKEN", fc.Matrix.AccessToken),
			AllowedRooms: environment.StringSliceOr("MATRIX_ROOMS", fc.Matrix.AllowedRooms),
		},
		NLU: nlu.Config{
			Endpoint: environment.StringOr("NIMBUS_NLU_ENDPOINT", fc.NLU.Endpoint),
			AppID:    environment.StringOr("NIMBUS_NLU_APP_ID", fc.NLU.AppID),
			Key:      environment.StringOr("NIMBUS_NLU_KEY", fc.NLU.Key),
		},
		Azure: azure.Config{
			TenantID: environment.StringOr("NIMBUS_AZURE_TENANT", fc.Azure.TenantID),
			Location: environment.StringOr("NIMBUS_AZURE_LOCATION", fc.Azure.Location),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Matrix.Homeserver == "" {
		missing = append(missing, "MATRIX_HOMESERVER")
	}
	if c.Matrix.UserID == "" {
		missing = append(missing, "MATRIX_USER_ID")
	}
	if c.Matrix.AccessToken == "" {
		missing = append(missing, "MATRIX_ACCESS_TOKEN")
	}
	if c.NLU.Endpoint == "" {
		missing = append(missing, "NIMBUS_NLU_ENDPOINT")
	}
	if c.NLU.AppID == "" {
		missing = append(missing, "NIMBUS_NLU_APP_ID")
	}
	if c.NLU.Key == "" {
		missing = append(missing, "NIMBUS_NLU_KEY")
	}
	if c.Azure.TenantID == "" {
		missing = append(missing, "NIMBUS_AZURE_TENANT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
