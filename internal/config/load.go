package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SONGCRAFT"

// keys lists every configuration key so that environment variables are
// honored even when neither a default nor a config file supplies the key.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.shutdown_timeout",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"auth.jwt_secret",
	"auth.token_lifetime",
	"lyrics.provider",
	"lyrics.openai_api_key",
	"lyrics.openai_model",
	"lyrics.openai_base_url",
	"lyrics.gemini_api_key",
	"lyrics.gemini_model",
	"lyrics.timeout",
	"audio.providers",
	"audio.mureka.base_url",
	"audio.mureka.api_key",
	"audio.mureka.model",
	"audio.suno.base_url",
	"audio.suno.api_key",
	"audio.suno.model",
	"audio.timeout",
	"video.base_url",
	"video.api_key",
	"poll.intervals",
	"task.worker_count",
	"task.queue_size",
	"broadcast.max_pending",
	"broadcast.keepalive",
	"reconcile.interval",
	"reconcile.stale_after",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("auth.token_lifetime", time.Hour)
	v.SetDefault("lyrics.provider", "openai")
	v.SetDefault("lyrics.openai_model", "gpt-4")
	v.SetDefault("lyrics.gemini_model", "gemini-2.0-flash")
	v.SetDefault("lyrics.timeout", 60*time.Second)
	v.SetDefault("audio.providers", []string{"mureka", "suno"})
	v.SetDefault("audio.mureka.base_url", "https://api.mureka.ai")
	v.SetDefault("audio.mureka.model", "auto")
	v.SetDefault("audio.suno.base_url", "https://api.suno.ai")
	v.SetDefault("audio.timeout", 2*time.Minute)
	v.SetDefault("poll.intervals", []time.Duration{30 * time.Second, 120 * time.Second, 180 * time.Second})
	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("broadcast.max_pending", 0)
	v.SetDefault("broadcast.keepalive", 15*time.Second)
	v.SetDefault("reconcile.interval", 5*time.Minute)
	v.SetDefault("reconcile.stale_after", 10*time.Minute)
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config struct or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints plus the cross-field rule that every
// listed audio vendor has credentials.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for _, name := range cfg.Audio.Providers {
		vendor, _ := cfg.Audio.Vendor(name)
		if vendor.APIKey == "" {
			return fmt.Errorf("config validation failed: audio provider %q has no api_key", name)
		}
		if vendor.BaseURL == "" {
			return fmt.Errorf("config validation failed: audio provider %q has no base_url", name)
		}
	}
	return nil
}
