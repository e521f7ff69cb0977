package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// StoreMemory keeps conversation state in process memory.
	StoreMemory = "memory"
	// StoreRedis keeps conversation state in Redis.
	StoreRedis = "redis"
	// StorePostgres keeps conversation state in PostgreSQL.
	StorePostgres = "postgres"
)

// FormsConfig tunes how forms are driven.
type FormsConfig struct {
	// RetainData keeps collected values after a form finishes; nil means true.
	RetainData   *bool  `yaml:"retain_data" envconfig:"FORMS_RETAIN_DATA"`
	GenericError string `yaml:"generic_error" envconfig:"FORMS_GENERIC_ERROR"`
	SkipLabel    string `yaml:"skip_label" envconfig:"FORMS_SKIP_LABEL"`
	// ParseMode is "" (plain), "markdown" or "markdownv2".
	ParseMode   string `yaml:"parse_mode" envconfig:"FORMS_PARSE_MODE"`
	Definitions string `yaml:"definitions" envconfig:"FORMS_DEFINITIONS"`
}

// RedisConfig holds connection settings for the Redis state store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// StoreConfig selects the conversation state backend.
type StoreConfig struct {
	Backend    string      `yaml:"backend" envconfig:"STORE_BACKEND"`
	TTLSeconds int         `yaml:"ttl_seconds" envconfig:"STORE_TTL_SECONDS"`
	Redis      RedisConfig `yaml:"redis"`
}

// SenderConfig tunes the outbound message queue. Zero values select defaults.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"SENDER_RETRY_BACKOFF_MS"`
	MaxDurationMS  int `yaml:"max_duration_ms" envconfig:"SENDER_MAX_DURATION_MS"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sender    SenderConfig    `yaml:"sender"`
	Forms     FormsConfig     `yaml:"forms"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Retain reports whether form data survives form completion.
func (f FormsConfig) Retain() bool {
	return f.RetainData == nil || *f.RetainData
}

// Load reads the core configuration from path and the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path, then applies environment
// overrides declared with envconfig tags. dst may embed Config inline.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and rewrites enum-like values to their canonical form.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}
	for _, step := range []func(*Config) error{normalizeRunMode, normalizeRateLimit, normalizeSender, normalizeStore, normalizeForms} {
		if err := step(cfg); err != nil {
			return err
		}
	}
	return nil
}

// canonical lower-cases raw and checks it against allowed. Empty input yields def.
func canonical(field, raw, def string, allowed ...string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return def, nil
	}
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("invalid %s %q; allowed: %s", field, raw, strings.Join(allowed, ", "))
	}
	return v, nil
}

func normalizeRunMode(cfg *Config) error {
	raw := cfg.Telegram.RunMode
	if strings.EqualFold(strings.TrimSpace(raw), "polling") {
		raw = RunModeLongpoll
	}
	rm, err := canonical("telegram.run_mode", raw, RunModeLongpoll, RunModeWebhook, RunModeLongpoll)
	if err != nil {
		return err
	}
	cfg.Telegram.RunMode = rm

	if rm == RunModeLongpoll {
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
		return nil
	}
	switch {
	case strings.TrimSpace(cfg.Webhook.URL) == "":
		return errors.New("webhook.url is required when telegram.run_mode is 'webhook'")
	case strings.TrimSpace(cfg.Webhook.Listen) == "":
		return errors.New("webhook.listen is required when telegram.run_mode is 'webhook'")
	case cfg.Webhook.Port <= 0:
		return errors.New("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
	}
	return nil
}

func normalizeRateLimit(cfg *Config) error {
	kept := cfg.RateLimit.ExcludeUpdates[:0]
	for _, v := range cfg.RateLimit.ExcludeUpdates {
		key, err := canonical("rate_limit.exclude_updates value", v, "", UpdateCallback, UpdateMessage, UpdateInlineQuery)
		if err != nil {
			return err
		}
		if key != "" {
			kept = append(kept, key)
		}
	}
	cfg.RateLimit.ExcludeUpdates = kept
	return nil
}

func normalizeSender(cfg *Config) error {
	s := cfg.Sender
	if s.QueueSize < 0 || s.Workers < 0 || s.MaxRetries < 0 || s.RetryBackoffMS < 0 || s.MaxDurationMS < 0 {
		return errors.New("sender settings must be >= 0")
	}
	return nil
}

func normalizeStore(cfg *Config) error {
	backend, err := canonical("store.backend", cfg.Store.Backend, StoreMemory, StoreMemory, StoreRedis, StorePostgres)
	if err != nil {
		return err
	}
	cfg.Store.Backend = backend
	if backend == StoreRedis && strings.TrimSpace(cfg.Store.Redis.Addr) == "" {
		return errors.New("store.redis.addr is required when store.backend is 'redis'")
	}
	if cfg.Store.TTLSeconds < 0 {
		return errors.New("store.ttl_seconds must be >= 0")
	}
	return nil
}

func normalizeForms(cfg *Config) error {
	mode, err := canonical("forms.parse_mode", cfg.Forms.ParseMode, "", "markdown", "markdownv2")
	if err != nil {
		return err
	}
	cfg.Forms.ParseMode = mode
	return nil
}
