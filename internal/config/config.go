package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig holds the two session lifetime policies. DefaultTTL applies
// to plain logins; RememberTTL applies when the remember flag was set.
type SessionConfig struct {
	CookieName  string
	DefaultTTL  time.Duration
	RememberTTL time.Duration
}

type HasherConfig struct {
	Time          uint32
	MemoryKiB     uint32
	Threads       uint8
	MaxConcurrent int
}

type AppConfig struct {
	Environment string
	HTTP        HTTPConfig
	TLS         TLSConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Session     SessionConfig
	Hasher      HasherConfig
}

// SecureCookies reports whether session cookies should carry the Secure
// attribute. A cookie marked Secure is never sent over plain transport,
// so plain-HTTP deployments must leave it off.
func (c *AppConfig) SecureCookies() bool {
	return c.TLS.Enabled
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SECUREAUTH")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("tls.enabled", false)

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.cookiename", "session_id")
	v.SetDefault("session.defaultttl", "8h")
	v.SetDefault("session.rememberttl", "336h") // 14 days

	v.SetDefault("hasher.time", 3)
	v.SetDefault("hasher.memorykib", 65536)
	v.SetDefault("hasher.threads", 2)
	v.SetDefault("hasher.maxconcurrent", 8)
}
