package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Source    SourceConfig    `mapstructure:"source"`
	Server    ServerConfig    `mapstructure:"server"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
	Policy    analysis.Policy `mapstructure:"policy"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs sweep cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// SweepConfig bounds one scheduled pass over stored snapshots.
type SweepConfig struct {
	Workers  int `mapstructure:"workers"`
	MaxItems int `mapstructure:"max_items"`
}

// SourceConfig locates snapshots: a local directory or an upstream scraping service.
type SourceConfig struct {
	Dir                string        `mapstructure:"dir"`
	BaseURL            string        `mapstructure:"base_url"`
	APIKey             string        `mapstructure:"api_key"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	DefaultMarketplace string        `mapstructure:"default_marketplace"`
}

// ServerConfig drives the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// AlertingConfig defines which outcomes are pushed and how often.
type AlertingConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	NotifyGo        bool           `mapstructure:"notify_go"`
	MinArbMarginPct float64        `mapstructure:"min_arbitrage_margin_pct"`
	Cooldown        time.Duration  `mapstructure:"cooldown"`
	CacheSize       int            `mapstructure:"cache_size"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot target.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MERCHANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Policy = completePolicy(cfg.Policy)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "merchant-verdict")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6d766572))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("sweep.workers", 4)
	v.SetDefault("sweep.max_items", 1000)

	v.SetDefault("source.dir", "product_datas")
	v.SetDefault("source.request_timeout", "30s")
	v.SetDefault("source.user_agent", "merchant-verdict/1.0")
	v.SetDefault("source.default_marketplace", "us")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.notify_go", true)
	v.SetDefault("alerting.min_arbitrage_margin_pct", 20.0)
	v.SetDefault("alerting.cooldown", "24h")
	v.SetDefault("alerting.cache_size", 4096)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	setPolicyDefaults(v, analysis.DefaultPolicy())
}

// setPolicyDefaults registers every scalar policy key so that MERCHANT_POLICY_*
// environment overrides reach the decoder. Lists and maps are filled in by
// completePolicy instead, because the decoder merges them element-wise.
func setPolicyDefaults(v *viper.Viper, policy analysis.Policy) {
	var tree map[string]any
	if err := mapstructure.Decode(policy, &tree); err != nil {
		return
	}
	flattenDefaults(v, "policy", tree)
}

func flattenDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		path := prefix + "." + key
		if nested, ok := value.(map[string]any); ok {
			flattenDefaults(v, path, nested)
			continue
		}
		switch reflect.ValueOf(value).Kind() {
		case reflect.Slice, reflect.Map:
			continue
		}
		v.SetDefault(path, value)
	}
}

// completePolicy fills the list and table defaults and upper-cases currency codes,
// which viper lower-cases on read.
func completePolicy(p analysis.Policy) analysis.Policy {
	if len(p.Remediation) == 0 {
		p.Remediation = analysis.DefaultRemediation()
	}
	rates := p.CrossMarket.Rates
	if len(rates) == 0 {
		rates = analysis.DefaultRates()
	}
	p.CrossMarket.Rates = make(map[string]float64, len(rates))
	for code, rate := range rates {
		p.CrossMarket.Rates[strings.ToUpper(code)] = rate
	}
	p.CrossMarket.ReferenceCurrency = strings.ToUpper(p.CrossMarket.ReferenceCurrency)
	return p
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Sweep.Workers <= 0 {
		return fmt.Errorf("sweep.workers must be greater than zero")
	}
	if c.Source.RequestTimeout <= 0 {
		return fmt.Errorf("source.request_timeout must be greater than zero")
	}
	if c.Alerting.MinArbMarginPct < 0 {
		return fmt.Errorf("alerting.min_arbitrage_margin_pct cannot be negative")
	}
	if c.Alerting.Enabled && c.Alerting.CacheSize <= 0 {
		return fmt.Errorf("alerting.cache_size must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
