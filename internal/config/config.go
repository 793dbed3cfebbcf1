package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Lyrics    LyricsConfig    `mapstructure:"lyrics" validate:"required"`
	Audio     AudioConfig     `mapstructure:"audio" validate:"required"`
	Video     VideoConfig     `mapstructure:"video"`
	Poll      PollConfig      `mapstructure:"poll" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LyricsConfig selects and configures the text model used for lyrics and titles.
type LyricsConfig struct {
	Provider      string        `mapstructure:"provider" validate:"required,oneof=openai gemini"`
	OpenAIAPIKey  string        `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIModel   string        `mapstructure:"openai_model"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url" validate:"omitempty,url"`
	GeminiAPIKey  string        `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	GeminiModel   string        `mapstructure:"gemini_model"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// VendorConfig holds the connection settings of one HTTP generation vendor.
type VendorConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// AudioConfig lists the audio vendors in priority order. The first entry is
// the primary; a second entry is the single fallback.
type AudioConfig struct {
	Providers []string      `mapstructure:"providers" validate:"min=1,max=2,unique,dive,oneof=mureka suno"`
	Mureka    VendorConfig  `mapstructure:"mureka"`
	Suno      VendorConfig  `mapstructure:"suno"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// VideoConfig configures the video render collaborator. Video is skipped when
// BaseURL is empty.
type VideoConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
}

// PollConfig is the completion poller schedule. One status check is made after
// each interval, so the number of intervals is the per-job check budget.
type PollConfig struct {
	Intervals []time.Duration `mapstructure:"intervals" validate:"min=1,dive,gt=0"`
}

// TaskConfig sizes the background worker pool.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize   int `mapstructure:"queue_size" validate:"gte=1"`
}

// BroadcastConfig bounds per-subscriber buffering and paces stream
// keepalives. A zero MaxPending means unbounded; a zero KeepAlive disables
// keepalive comments.
type BroadcastConfig struct {
	MaxPending int           `mapstructure:"max_pending" validate:"gte=0"`
	KeepAlive  time.Duration `mapstructure:"keepalive" validate:"gte=0"`
}

// ReconcileConfig drives the periodic sweep over songs whose audio job was
// abandoned by the poller.
type ReconcileConfig struct {
	Interval   time.Duration `mapstructure:"interval" validate:"gt=0"`
	StaleAfter time.Duration `mapstructure:"stale_after" validate:"gt=0"`
}

// Vendor returns the settings of the named audio vendor.
func (c AudioConfig) Vendor(name string) (VendorConfig, bool) {
	switch name {
	case "mureka":
		return c.Mureka, true
	case "suno":
		return c.Suno, true
	default:
		return VendorConfig{}, false
	}
}
