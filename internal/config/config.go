package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"oracle-relay-keeper/internal/logging"
	"oracle-relay-keeper/internal/workflow"
)

var validate = validator.New()

// Config materialises application configuration.
type Config struct {
	App       AppConfig         `mapstructure:"app"`
	Logging   logging.Config    `mapstructure:"logging"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler"`
	Ethereum  EthereumConfig    `mapstructure:"ethereum"`
	Oracle    OracleConfig      `mapstructure:"oracle"`
	CoinGecko CoinGeckoConfig   `mapstructure:"coingecko"`
	Relay     RelayConfig       `mapstructure:"relay"`
	Secrets   map[string]string `mapstructure:"secrets"`
	Alerting  AlertingConfig    `mapstructure:"alerting"`
	Export    ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for execution history.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs invocation cadence. Cron takes precedence over Interval.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	Cron            string        `mapstructure:"cron"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// EthereumConfig covers on-chain data access.
type EthereumConfig struct {
	RPCURL         string        `mapstructure:"rpc_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OracleConfig holds the invocation arguments. Empty values fall back to the workflow defaults.
type OracleConfig struct {
	Address        string        `mapstructure:"address" validate:"omitempty,eth_addr"`
	UserAddress    string        `mapstructure:"user_address" validate:"omitempty,eth_addr"`
	Currency       string        `mapstructure:"currency"`
	UpdateInterval time.Duration `mapstructure:"update_interval"`
}

// CoinGeckoConfig captures price API connectivity.
type CoinGeckoConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key"`
	Pro            bool          `mapstructure:"pro"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RelayConfig captures Gelato relay connectivity.
type RelayConfig struct {
	BaseURL          string        `mapstructure:"base_url" validate:"required,url"`
	APIKeySecret     string        `mapstructure:"api_key_secret" validate:"required"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	SecretsEnvPrefix string        `mapstructure:"secrets_env_prefix"`
}

// AlertingConfig defines failure alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels" validate:"dive,oneof=telegram log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram alert parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID   string `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLEKEEPER")
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
	v.SetDefault("app.name", "oraclekeeper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.cron", "")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6f72636c))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("ethereum.rpc_url", "http://localhost:8545")
	v.SetDefault("ethereum.request_timeout", "10s")

	v.SetDefault("oracle.address", workflow.DefaultOracle)
	v.SetDefault("oracle.user_address", workflow.DefaultUserAddress)
	v.SetDefault("oracle.currency", workflow.DefaultCurrency)
	v.SetDefault("oracle.update_interval", "1h")

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.pro", false)
	v.SetDefault("coingecko.request_timeout", "5s")
	v.SetDefault("coingecko.user_agent", "")

	v.SetDefault("relay.base_url", "https://api.gelato.digital")
	v.SetDefault("relay.api_key_secret", workflow.DefaultAPIKeySecret)
	v.SetDefault("relay.request_timeout", "10s")
	v.SetDefault("relay.secrets_env_prefix", "ORACLEKEEPER_SECRET_")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"log", "telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 10000)

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
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

// Validate performs sanity checks on the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Cron == "" && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Oracle.UpdateInterval < 0 {
		return fmt.Errorf("oracle.update_interval cannot be negative")
	}
	if c.CoinGecko.RequestTimeout < 0 || c.Relay.RequestTimeout < 0 || c.Ethereum.RequestTimeout < 0 {
		return fmt.Errorf("request timeouts cannot be negative")
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

// Args renders the oracle section as the key-value invocation arguments.
func (c *Config) Args() map[string]string {
	args := make(map[string]string, 3)
	if c.Oracle.Address != "" {
		args[workflow.ArgOracle] = c.Oracle.Address
	}
	if c.Oracle.UserAddress != "" {
		args[workflow.ArgUserAddress] = c.Oracle.UserAddress
	}
	if c.Oracle.Currency != "" {
		args[workflow.ArgCurrency] = c.Oracle.Currency
	}
	return args
}
