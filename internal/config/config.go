package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/yudistirasd/baileys-api/internal/constants"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/security"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
	ErrInvalidPort   = models.ConfigError{Message: "server port must be between 1 and 65535"}
)

// LoadConfig reads the JSON configuration file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		return models.ConfigError{Message: "amqp exchange is required when amqp url is set"}
	}

	if len(c.Sessions) > 0 && c.Gateway.BaseURL == "" {
		return models.ConfigError{Message: "gateway base url is required when sessions are configured"}
	}

	seen := make(map[string]bool)
	for i, seed := range c.Sessions {
		if seed.ID == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty session id at index %d", i)}
		}
		if seen[seed.ID] {
			return models.ConfigError{Message: fmt.Sprintf("duplicate session id: %s", seed.ID)}
		}
		seen[seed.ID] = true
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("BAILEYS_API_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("BAILEYS_API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if url := os.Getenv("BAILEYS_API_GATEWAY_URL"); url != "" {
		c.Gateway.BaseURL = url
	}
	if key := os.Getenv("BAILEYS_API_GATEWAY_KEY"); key != "" {
		c.Gateway.APIKey = key
	}
	if level := os.Getenv("BAILEYS_API_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if url := os.Getenv("BAILEYS_API_AMQP_URL"); url != "" {
		c.AMQP.URL = url
	}
	if exchange := os.Getenv("BAILEYS_API_AMQP_EXCHANGE"); exchange != "" {
		c.AMQP.Exchange = exchange
	}
	if endpoint := os.Getenv("BAILEYS_API_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.Enabled = true
		c.Tracing.UseStdout = false
	}
}
