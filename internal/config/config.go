package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the fetch tool's settings, loaded from environment
// variables (HTTPC_ prefix) and an optional config file.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	UserAgent string `mapstructure:"user_agent"`

	TimeoutSeconds        int64         `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int64         `mapstructure:"connect_timeout_seconds"`
	Timeout               time.Duration `mapstructure:"-"`
	ConnectTimeout        time.Duration `mapstructure:"-"`

	MaxRedirects    int  `mapstructure:"max_redirects"`
	FollowRedirects bool `mapstructure:"follow_redirects"`
	StatusErrors    bool `mapstructure:"status_errors"`

	DisablePooling     bool          `mapstructure:"disable_pooling"`
	MaxIdlePerHost     int           `mapstructure:"max_idle_per_host"`
	IdleTimeoutSeconds int64         `mapstructure:"idle_timeout_seconds"`
	IdleTimeout        time.Duration `mapstructure:"-"`

	CookieJarPath string `mapstructure:"cookie_jar_path"`
	ProfilesFile  string `mapstructure:"profiles_file"`
}

// Load reads configuration from environment variables and, when
// HTTPC_CONFIG_FILE names one, a config file. Environment values win
// over file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("user_agent", "")
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("connect_timeout_seconds", 0)
	v.SetDefault("max_redirects", 10)
	v.SetDefault("follow_redirects", true)
	v.SetDefault("status_errors", true)
	v.SetDefault("disable_pooling", false)
	v.SetDefault("max_idle_per_host", 5)
	v.SetDefault("idle_timeout_seconds", 90)
	v.SetDefault("cookie_jar_path", "")
	v.SetDefault("profiles_file", "")
	v.SetDefault("config_file", "")

	v.SetEnvPrefix("httpc")
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.ConnectTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid connect_timeout_seconds (must not be negative)")
	}
	cfg.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second

	if cfg.MaxRedirects < 0 {
		return nil, fmt.Errorf("invalid max_redirects (must not be negative)")
	}
	if cfg.MaxIdlePerHost <= 0 {
		return nil, fmt.Errorf("invalid max_idle_per_host (must be positive)")
	}
	if cfg.IdleTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid idle_timeout_seconds (must be positive seconds)")
	}
	cfg.IdleTimeout = time.Duration(cfg.IdleTimeoutSeconds) * time.Second

	return &cfg, nil
}
