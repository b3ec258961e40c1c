package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CARELINK_SERVER_PORT.
const EnvPrefix = "CARELINK"

type ServerConfig struct {
	Host       string `mapstructure:"host" json:"host"`
	Port       int    `mapstructure:"port" json:"port"`
	Subpath    string `mapstructure:"subpath" json:"subpath"`
	JWTSecret  string `mapstructure:"jwtsecret" json:"-"`
	LogLevel   string `mapstructure:"log_level" json:"log_level"`
	PrettyLogs bool   `mapstructure:"pretty_logs" json:"pretty_logs"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" json:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn" json:"-"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
}

type SessionConfig struct {
	Backend    string `mapstructure:"backend" json:"backend"` // redis | memory
	TTLMinutes int    `mapstructure:"ttl_minutes" json:"ttl_minutes"`
}

type DocumentsConfig struct {
	MaxSizeMB             int  `mapstructure:"max_size_mb" json:"max_size_mb"`
	FetchTimeoutSeconds   int  `mapstructure:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`
	BreakerThreshold      int  `mapstructure:"breaker_threshold" json:"breaker_threshold"`
	BreakerTimeoutSeconds int  `mapstructure:"breaker_timeout_seconds" json:"breaker_timeout_seconds"`
	FallbackEnabled       bool `mapstructure:"fallback_enabled" json:"fallback_enabled"`
}

type AnalysisConfig struct {
	Engine    string `mapstructure:"engine" json:"engine"` // heuristic | remote
	CacheSize int    `mapstructure:"cache_size" json:"cache_size"`
}

type ProgressConfig struct {
	SliderMax  float64 `mapstructure:"slider_max" json:"slider_max"`
	SliderStep float64 `mapstructure:"slider_step" json:"slider_step"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	Redis     RedisConfig     `mapstructure:"redis" json:"redis"`
	Session   SessionConfig   `mapstructure:"session" json:"session"`
	Documents DocumentsConfig `mapstructure:"documents" json:"documents"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" json:"analysis"`
	Progress  ProgressConfig  `mapstructure:"progress" json:"progress"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads the config file (json or yaml, by extension) once and
// applies CARELINK_* environment overrides. An empty path loads defaults and
// environment only.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		c, err := load(path)
		if err != nil {
			cfgErr = err
			return
		}
		cfg = c
	})
	return cfg, cfgErr
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}

// Default returns a config populated with defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.subpath", "")
	v.SetDefault("server.jwtsecret", "")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.pretty_logs", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "carelink.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl_minutes", 7*24*60)

	v.SetDefault("documents.max_size_mb", 10)
	v.SetDefault("documents.fetch_timeout_seconds", 20)
	v.SetDefault("documents.breaker_threshold", 3)
	v.SetDefault("documents.breaker_timeout_seconds", 300)
	v.SetDefault("documents.fallback_enabled", true)

	v.SetDefault("analysis.engine", "heuristic")
	v.SetDefault("analysis.cache_size", 128)

	v.SetDefault("progress.slider_max", 10000)
	v.SetDefault("progress.slider_step", 500)
}

// Validate rejects configs the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return errors.New("jwtSecret must be set in config")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Session.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Analysis.Engine {
	case "heuristic", "remote":
	default:
		return fmt.Errorf("unknown analysis engine %q", c.Analysis.Engine)
	}
	if c.Progress.SliderStep < 0 || c.Progress.SliderMax < 0 {
		return errors.New("progress slider bounds must not be negative")
	}
	return nil
}
