package models

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return "config error: " + e.Message
}

// Config is the full application configuration, loaded from JSON with
// environment overrides applied afterwards.
type Config struct {
	Server    ServerConfig   `json:"server"`
	Gateway   GatewayConfig  `json:"gateway"`
	Database  DatabaseConfig `json:"database"`
	Tracing   TracingConfig  `json:"tracing"`
	AMQP      AMQPConfig     `json:"amqp"`
	Retry     RetryConfig    `json:"retry"`
	LogLevel  string         `json:"logLevel"`
	Sessions  []SessionSeed  `json:"sessions"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// GatewayConfig points at the external protocol gateway that holds the
// actual WhatsApp connections. Events flow back in through the ingest
// endpoint; outbound operations go through this URL.
type GatewayConfig struct {
	BaseURL    string `json:"baseUrl"`
	APIKey     string `json:"apiKey,omitempty"`
	TimeoutSec int    `json:"timeoutSec"`
}

// DatabaseConfig holds the SQLite store settings.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// TracingConfig mirrors the OpenTelemetry setup knobs.
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

// AMQPConfig enables republishing of outcome events to a broker. Disabled
// when URL is empty.
type AMQPConfig struct {
	URL      string `json:"url"`
	Exchange string `json:"exchange"`
}

// RetryConfig bounds the exponential backoff used for database bring-up.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// SessionSeed names a session to bring up at startup.
type SessionSeed struct {
	ID string `json:"id"`
}
