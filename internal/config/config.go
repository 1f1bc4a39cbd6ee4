package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

type Gemini struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Endpoint   string `mapstructure:"endpoint"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type Price struct {
	Endpoint   string `mapstructure:"endpoint"`
	Currency   string `mapstructure:"currency"`
	TTLSeconds int    `mapstructure:"ttl_sec"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type RateLimit struct {
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute"`
	Burst                int `mapstructure:"burst"`
}

type Log struct {
	Level       string `mapstructure:"level"`       // "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // optional file path for rotated logs
	Environment string `mapstructure:"environment"` // "dev" or "prod"
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Gemini    Gemini    `mapstructure:"gemini"`
	Price     Price     `mapstructure:"price"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Log       Log       `mapstructure:"log"`
}

// Load reads configuration from an optional YAML file plus environment
// overrides. If path is empty, ./config.yaml is used when present.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout_sec", 30)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.timeout_sec", 30)
	v.SetDefault("price.endpoint", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.currency", "usd")
	v.SetDefault("price.ttl_sec", 300)
	v.SetDefault("price.timeout_sec", 10)
	v.SetDefault("ratelimit.max_requests_per_minute", 60)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "prod")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variable names carried over from earlier deployments.
	_ = v.BindEnv("gemini.api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL_NAME", "GEMINI_MODEL")
	_ = v.BindEnv("server.port", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// The default config file is optional.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports startup-fatal problems. A missing Gemini key must stop the
// process before it serves traffic.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required in environment")
	}
	if c.Price.TTLSeconds < 0 {
		return fmt.Errorf("price.ttl_sec must not be negative")
	}
	return nil
}
