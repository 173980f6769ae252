package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"option-guide/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the YAML file is parsed.
const (
	EnvPort        = "OPTION_GUIDE_PORT"
	EnvLogLevel    = "OPTION_GUIDE_LOG_LEVEL"
	EnvDBDSN       = "OPTION_GUIDE_DB_DSN"
	EnvContentPath = "OPTION_GUIDE_CONTENT_PATH"
)

// DefaultCurrencyGlyphs are stripped from PnL strings unless the config lists its own.
var DefaultCurrencyGlyphs = []string{",", "+", "￥", "¥", "$", "元", "€", "£"}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file. A .env file next to the
// working directory is loaded first (best effort) so its values can override.
func NewConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvContentPath); v != "" {
		c.ContentPath = v
	}
	return nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the behaviour of the original page.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.ContentPath == "" {
		c.ContentPath = "content/tabs.json"
	}

	s := &c.Stream
	if s.TickIntervalMs == 0 {
		s.TickIntervalMs = 1500
	}
	if s.HeartbeatIntervalMs == 0 {
		s.HeartbeatIntervalMs = 15000
	}
	if s.PriceSource == "" {
		s.PriceSource = "synthetic"
	}
	if s.StartPrice == 0 {
		s.StartPrice = 60000
	}
	if s.MaxDelta == 0 {
		s.MaxDelta = 200
	}
	if s.FloorPrice == 0 {
		s.FloorPrice = 100
	}
	if s.WriteTimeoutMs == 0 {
		s.WriteTimeoutMs = 2000
	}

	p := &c.Pricing
	if len(p.CurrencyGlyphs) == 0 {
		p.CurrencyGlyphs = append([]string(nil), DefaultCurrencyGlyphs...)
	}
	if p.StrikeStep == 0 {
		p.StrikeStep = 1000
	}
	if p.PremiumRate == 0 {
		p.PremiumRate = 0.025
	}

	ch := &c.Chart
	if ch.Width == 0 {
		ch.Width = 960
	}
	if ch.Height == 0 {
		ch.Height = 300
	}
	if ch.Padding == 0 {
		ch.Padding = 50
	}
	if ch.TickStep == 0 {
		ch.TickStep = 5000
	}
	if ch.XCaption == "" {
		ch.XCaption = "价格"
	}
	if ch.YCaption == "" {
		ch.YCaption = "收益"
	}
	if ch.LineColor == "" {
		ch.LineColor = "69b1ff"
	}
	if ch.AxisColor == "" {
		ch.AxisColor = "1f2430"
	}
	if ch.ZeroColor == "" {
		ch.ZeroColor = "3a3a3a"
	}
	if ch.LabelColor == "" {
		ch.LabelColor = "cfd3dc"
	}
	if ch.Background == "" {
		ch.Background = "12151c"
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "option-guide.db"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 7
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 1
	}

	d := &c.DataSource
	if d.Provider == "" {
		d.Provider = "binance_rest"
	}
	if d.Symbol == "" {
		d.Symbol = "BTCUSDT"
	}
	if d.BaseURL == "" {
		d.BaseURL = "https://api.binance.com"
	}
	if d.StreamURL == "" {
		d.StreamURL = "wss://stream.binance.com:9443"
	}
	if d.PollIntervalSeconds == 0 {
		d.PollIntervalSeconds = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
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
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Stream configuration
	if c.Stream.TickIntervalMs <= 0 || c.Stream.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("stream intervals must be greater than 0")
	}
	switch c.Stream.PriceSource {
	case "synthetic", "upstream":
	default:
		return fmt.Errorf("unknown stream price source '%s'", c.Stream.PriceSource)
	}
	if c.Stream.PriceSource == "upstream" && !c.DataSource.Enabled {
		return fmt.Errorf("stream price source 'upstream' requires data_source.enabled")
	}
	if c.Stream.FloorPrice <= 0 {
		return fmt.Errorf("stream floor price must be positive")
	}
	if c.Stream.StartPrice < c.Stream.FloorPrice {
		return fmt.Errorf("stream start price %.2f is below floor %.2f", c.Stream.StartPrice, c.Stream.FloorPrice)
	}
	if c.Stream.MaxDelta < 0 {
		return fmt.Errorf("stream max delta cannot be negative")
	}

	// Validate Chart configuration
	if c.Chart.Width <= 2*c.Chart.Padding || c.Chart.Height <= 2*c.Chart.Padding {
		return fmt.Errorf("chart %dx%d leaves no room inside padding %d", c.Chart.Width, c.Chart.Height, c.Chart.Padding)
	}
	if c.Chart.TickStep <= 0 {
		return fmt.Errorf("chart tick step must be greater than 0")
	}

	// Validate Storage configuration
	if c.Storage.Enabled {
		switch strings.ToLower(c.Storage.DBType) {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return fmt.Errorf("database path cannot be empty for sqlite")
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return fmt.Errorf("database connection string cannot be empty for postgres")
			}
		default:
			return fmt.Errorf("unknown database type '%s'", c.Storage.DBType)
		}
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate DataSource configuration
	if c.DataSource.Enabled {
		switch c.DataSource.Provider {
		case "binance_rest", "binance_ws":
		default:
			return fmt.Errorf("unknown data source provider '%s'", c.DataSource.Provider)
		}
		if c.DataSource.PollIntervalSeconds <= 0 {
			return fmt.Errorf("poll interval must be greater than 0")
		}
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
