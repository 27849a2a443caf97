package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Crypto      CryptoConfig      `mapstructure:"crypto"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Challenge   ChallengeConfig   `mapstructure:"challenge"`
	DeviceCache DeviceCacheConfig `mapstructure:"device_cache"`
	FX          FXConfig          `mapstructure:"fx"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Dispatcher  DispatcherConfig  `mapstructure:"dispatcher"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	Expiry       time.Duration `mapstructure:"expiry"`
	Issuer       string        `mapstructure:"issuer"`
	StepUpExpiry time.Duration `mapstructure:"step_up_expiry"`
}

type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type LedgerConfig struct {
	TreasuryOwnerID     string        `mapstructure:"treasury_owner_id"`
	Currencies          []string      `mapstructure:"currencies"` // treasury accounts; first is primary
	MinConvertedAmount  string        `mapstructure:"min_converted_amount"`
	BalanceCacheTTL     time.Duration `mapstructure:"balance_cache_ttl"`
	IdempotencyCacheTTL time.Duration `mapstructure:"idempotency_cache_ttl"`
	IdempotencyLease    time.Duration `mapstructure:"idempotency_lease"` // processing records older than this may be taken over
}

type RiskConfig struct {
	UnfamiliarDevicePoints  int               `mapstructure:"unfamiliar_device_points"`
	UnfamiliarNetworkPoints int               `mapstructure:"unfamiliar_network_points"`
	HighAmountPoints        int               `mapstructure:"high_amount_points"`
	MediumAmountPoints      int               `mapstructure:"medium_amount_points"`
	VelocityPoints          int               `mapstructure:"velocity_points"`
	NewCounterpartyPoints   int               `mapstructure:"new_counterparty_points"`
	FlagPoints              int               `mapstructure:"flag_points"`
	FlagPointsCap           int               `mapstructure:"flag_points_cap"`
	VelocityWindow          time.Duration     `mapstructure:"velocity_window"`
	VelocityLimit           int64             `mapstructure:"velocity_limit"`
	DefaultHighAmount       string            `mapstructure:"default_high_amount"`
	DefaultMediumAmount     string            `mapstructure:"default_medium_amount"`
	HighAmounts             map[string]string `mapstructure:"high_amounts"`   // per currency
	MediumAmounts           map[string]string `mapstructure:"medium_amounts"` // per currency
	SignalTimeout           time.Duration     `mapstructure:"signal_timeout"`
}

type ChallengeConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	CodeDigits  int           `mapstructure:"code_digits"`
}

type DeviceCacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type FXConfig struct {
	Provider    string            `mapstructure:"provider"` // static, http
	BaseURL     string            `mapstructure:"base_url"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	StaticRates map[string]string `mapstructure:"static_rates"` // "USD/HTG": "135"
}

type NotifyConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"` // empty: log only
	Secret     string        `mapstructure:"secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type DispatcherConfig struct {
	QueueSize      int             `mapstructure:"queue_size"`
	Workers        int             `mapstructure:"workers"`
	RetryIntervals []time.Duration `mapstructure:"retry_intervals"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"` // empty: publishing disabled
	Exchange string `mapstructure:"exchange"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"` // empty: audit disabled
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MML_ (Mobile Money Ledger).
// Nested keys use underscore: MML_DATABASE_HOST, MML_RISK_VELOCITY_LIMIT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "mobile_money")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "mobile-money-ledger")
	v.SetDefault("jwt.step_up_expiry", "10m")

	v.SetDefault("crypto.aes_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("ledger.treasury_owner_id", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("ledger.currencies", []string{"HTG", "USD"})
	v.SetDefault("ledger.min_converted_amount", "0.0001")
	v.SetDefault("ledger.balance_cache_ttl", "30s")
	v.SetDefault("ledger.idempotency_cache_ttl", "24h")
	v.SetDefault("ledger.idempotency_lease", "1m")

	v.SetDefault("risk.unfamiliar_device_points", 40)
	v.SetDefault("risk.unfamiliar_network_points", 20)
	v.SetDefault("risk.high_amount_points", 40)
	v.SetDefault("risk.medium_amount_points", 20)
	v.SetDefault("risk.velocity_points", 40)
	v.SetDefault("risk.new_counterparty_points", 20)
	v.SetDefault("risk.flag_points", 20)
	v.SetDefault("risk.flag_points_cap", 40)
	v.SetDefault("risk.velocity_window", "10m")
	v.SetDefault("risk.velocity_limit", 5)
	v.SetDefault("risk.default_high_amount", "50000")
	v.SetDefault("risk.default_medium_amount", "10000")
	v.SetDefault("risk.high_amounts", map[string]string{"USD": "1000", "HTG": "100000"})
	v.SetDefault("risk.medium_amounts", map[string]string{"USD": "250", "HTG": "25000"})
	v.SetDefault("risk.signal_timeout", "2s")

	v.SetDefault("challenge.ttl", "5m")
	v.SetDefault("challenge.max_attempts", 5)
	v.SetDefault("challenge.code_digits", 6)

	v.SetDefault("device_cache.size", 10000)
	v.SetDefault("device_cache.ttl", "10m")

	v.SetDefault("fx.provider", "static")
	v.SetDefault("fx.base_url", "")
	v.SetDefault("fx.timeout", "3s")
	v.SetDefault("fx.static_rates", map[string]string{"USD/HTG": "135"})

	v.SetDefault("notify.gateway_url", "")
	v.SetDefault("notify.secret", "")
	v.SetDefault("notify.timeout", "5s")

	v.SetDefault("dispatcher.queue_size", 1024)
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.retry_intervals", []string{"1s", "5s", "30s"})

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "ledger_events")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "mobile_money_audit")
	v.SetDefault("mongo.collection", "outbound_events")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
