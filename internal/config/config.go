package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"brokerctl/pkg/utils"
)

// Static errors for err113 compliance.
var (
	ErrVaultAddressNotSet = errors.New("vault address is not set when audit is enabled")
	ErrVaultTokenNotSet   = errors.New("vault token is not set when audit is enabled")
	ErrInvalidTimeout     = errors.New("default timeout must be positive")
)

// Config is the top-level configuration.
type Config struct {
	Tools    ToolsConfig    `yaml:"tools"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Guard    GuardConfig    `yaml:"guard"`
	Audit    AuditConfig    `yaml:"audit"`
	Probe    ProbeConfig    `yaml:"probe"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
	Debug    bool           `yaml:"debug"`
	Env      string         `yaml:"env"`
}

// ToolsConfig binds tool names to explicit executable paths. Empty values
// fall back to PATH lookup.
type ToolsConfig struct {
	Ctl     string `yaml:"rabbitmqctl"`
	Plugins string `yaml:"rabbitmq_plugins"`
}

// DefaultsConfig holds per-invocation defaults.
type DefaultsConfig struct {
	Node           string `yaml:"node"`
	Quiet          *bool  `yaml:"quiet"` // Pointer to distinguish between false and unset
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GuardConfig configures the circuit breaker and rate limiter in front of
// tool invocations.
type GuardConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxRequests      int     `yaml:"max_requests"`
	IntervalSeconds  int     `yaml:"interval_seconds"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	FailureThreshold int     `yaml:"failure_threshold"`
	RatePerSecond    float64 `yaml:"rate_per_second"`
	Burst            int     `yaml:"burst"`
}

// AuditConfig configures the Vault-backed execution history.
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Token    string `yaml:"token"`
	Prefix   string `yaml:"prefix"`
	Insecure bool   `yaml:"skip_ssl_validation"`
	CACert   string `yaml:"cacert"`
}

// ProbeConfig configures the AMQP liveness probe.
type ProbeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"tls"`
}

// WebConfig configures the streaming endpoint.
type WebConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BindIP          string `yaml:"bind_ip"`
	Port            string `yaml:"port"`
	ReadBufferSize  int    `yaml:"read_buffer_size"`
	WriteBufferSize int    `yaml:"write_buffer_size"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	OutputPath string `yaml:"output"` // stdout, stderr, or file path
}

// ReadConfig reads and validates configuration from file.
func ReadConfig(path string) (Config, error) {
	config, err := loadConfigFromFile(path)
	if err != nil {
		return config, err
	}

	applyEnvironmentOverrides(&config)
	setDefaults(&config)

	err = validate(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// loadConfigFromFile reads YAML config file.
func loadConfigFromFile(path string) (Config, error) {
	var config Config

	b, err := utils.SafeReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(b, &config)
	if err != nil {
		return config, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return config, nil
}

// applyEnvironmentOverrides lets the environment win over the file for the
// values operators most often need to flip without editing config.
func applyEnvironmentOverrides(config *Config) {
	if v := os.Getenv("BROKERCTL_DEBUG"); v == "1" || v == "true" {
		config.Debug = true
	}

	if v := os.Getenv("BROKERCTL_NODE"); v != "" {
		config.Defaults.Node = v
	}

	if v := os.Getenv("VAULT_ADDR"); v != "" && config.Audit.Address == "" {
		config.Audit.Address = v
	}

	if v := os.Getenv("VAULT_TOKEN"); v != "" && config.Audit.Token == "" {
		config.Audit.Token = v
	}
}

func setDefaults(config *Config) {
	setInvocationDefaults(config)
	setGuardDefaults(config)
	setAuditDefaults(config)
	setWebDefaults(config)
	setLogDefaults(config)
}

func setInvocationDefaults(config *Config) {
	// A zero timeout stays zero: per-verb defaults apply downstream.

	// Quiet output is the default; listing output is parsed, not read.
	if config.Defaults.Quiet == nil {
		quiet := true
		config.Defaults.Quiet = &quiet
	}
}

func setGuardDefaults(config *Config) {
	if config.Guard.MaxRequests == 0 {
		config.Guard.MaxRequests = 3
	}

	if config.Guard.IntervalSeconds == 0 {
		config.Guard.IntervalSeconds = 60
	}

	if config.Guard.TimeoutSeconds == 0 {
		config.Guard.TimeoutSeconds = 30
	}

	if config.Guard.FailureThreshold == 0 {
		config.Guard.FailureThreshold = 5
	}

	if config.Guard.RatePerSecond == 0 {
		config.Guard.RatePerSecond = 10
	}

	if config.Guard.Burst == 0 {
		config.Guard.Burst = 5
	}
}

func setAuditDefaults(config *Config) {
	if config.Audit.Prefix == "" {
		config.Audit.Prefix = "secret/data/brokerctl/audit"
	}
}

func setWebDefaults(config *Config) {
	if config.Web.BindIP == "" {
		config.Web.BindIP = "0.0.0.0"
	}

	if config.Web.Port == "" {
		config.Web.Port = "3000"
	}

	if config.Web.ReadBufferSize == 0 {
		config.Web.ReadBufferSize = 1024
	}

	if config.Web.WriteBufferSize == 0 {
		config.Web.WriteBufferSize = 1024
	}
}

func setLogDefaults(config *Config) {
	if config.Log.Level == "" {
		if config.Debug {
			config.Log.Level = "debug"
		} else {
			config.Log.Level = "info"
		}
	}

	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func validate(config *Config) error {
	if config.Defaults.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, config.Defaults.TimeoutSeconds)
	}

	if config.Audit.Enabled {
		if config.Audit.Address == "" {
			return ErrVaultAddressNotSet
		}

		if config.Audit.Token == "" {
			return ErrVaultTokenNotSet
		}
	}

	return nil
}

// ToolOverrides returns the configured tool path overrides keyed by tool
// name, skipping empty entries.
func (c *Config) ToolOverrides() map[string]string {
	overrides := make(map[string]string)

	if c.Tools.Ctl != "" {
		overrides["rabbitmqctl"] = c.Tools.Ctl
	}

	if c.Tools.Plugins != "" {
		overrides["rabbitmq-plugins"] = c.Tools.Plugins
	}

	return overrides
}

// IsQuiet returns whether tool invocations should pass the quiet switch.
func (c *Config) IsQuiet() bool {
	return c.Defaults.Quiet == nil || *c.Defaults.Quiet
}

// GetEnvironment returns the configured environment label.
func (c *Config) GetEnvironment() string {
	return c.Env
}
