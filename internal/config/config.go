package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Provider ProviderConfig `mapstructure:"provider"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ProviderConfig configures the CoinGecko price provider client
type ProviderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// SnapshotConfig configures the snapshot scheduler. DefaultIntervalMinutes is
// used only until an interval has been persisted through the settings store.
type SnapshotConfig struct {
	DefaultIntervalMinutes int           `mapstructure:"default_interval_minutes"`
	TickTimeout            time.Duration `mapstructure:"tick_timeout"`
}

// Load reads configuration from the given yaml file with CFB_* environment
// variables taking precedence. Pass envOnly to skip the file entirely.
func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CFB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("db.dsn", "host=localhost port=5432 user=postgres password=postgres dbname=cryptofolio sslmode=disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")

	v.SetDefault("provider.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.cache_ttl", "2m")

	v.SetDefault("snapshot.default_interval_minutes", 60)
	v.SetDefault("snapshot.tick_timeout", "1m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
