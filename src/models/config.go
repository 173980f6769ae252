package models

// MConfig Structure
type MConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	LogLevel       string            `yaml:"log_level"`
	GrpcHost       string            `yaml:"grpc_host"`
	GrpcPort       int               `yaml:"grpc_port"`
	TracingEnabled bool              `yaml:"tracing_enabled"`
	ContentPath    string            `yaml:"content_path"`
	Stream         MStreamConfig     `yaml:"stream"`
	Pricing        MPricingConfig    `yaml:"pricing"`
	Chart          MChartConfig      `yaml:"chart"`
	Storage        MStorageConfig    `yaml:"storage"`
	Network        MNetworkConfig    `yaml:"network"`
	DataSource     MDataSourceConfig `yaml:"data_source"`
}

// MStreamConfig drives every per-connection StreamSession.
type MStreamConfig struct {
	TickIntervalMs      int     `yaml:"tick_interval_ms"`
	HeartbeatIntervalMs int     `yaml:"heartbeat_interval_ms"`
	PriceSource         string  `yaml:"price_source"` // "synthetic" or "upstream"
	StartPrice          float64 `yaml:"start_price"`
	MaxDelta            float64 `yaml:"max_delta"`
	FloorPrice          float64 `yaml:"floor_price"`
	WriteTimeoutMs      int     `yaml:"write_timeout_ms"`
}

type MPricingConfig struct {
	// Glyphs stripped from PnL strings before numeric parsing.
	CurrencyGlyphs []string `yaml:"currency_glyphs"`
	StrikeStep     float64  `yaml:"strike_step"`
	PremiumRate    float64  `yaml:"premium_rate"`
}

type MChartConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Padding    int     `yaml:"padding"`
	TickStep   float64 `yaml:"tick_step"`
	XCaption   string  `yaml:"x_caption"`
	YCaption   string  `yaml:"y_caption"`
	LineColor  string  `yaml:"line_color"`
	AxisColor  string  `yaml:"axis_color"`
	ZeroColor  string  `yaml:"zero_color"`
	LabelColor string  `yaml:"label_color"`
	Background string  `yaml:"background"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Provider            string `yaml:"provider"` // "binance_rest" or "binance_ws"
	Symbol              string `yaml:"symbol"`
	BaseURL             string `yaml:"base_url"`
	StreamURL           string `yaml:"stream_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	// Calendar is an optional ISO 10383 MIC; polls are skipped while that market is closed.
	Calendar string `yaml:"calendar"`
}
