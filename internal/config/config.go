// Package config handles application configuration from a TOML file, a .env
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"nyurban_tracker/internal/filter"
)

// Supported state backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// DefaultBaseURL is the schedule page all locations are filtered from.
const DefaultBaseURL = "https://www.nyurban.com/?page_id=400&gametypeid=1"

// Config holds the application configuration.
type Config struct {
	LogLevel             string `toml:"log_level"`
	CheckIntervalMinutes int    `toml:"check_interval_minutes"`

	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`

	StateBackend  string `toml:"state_backend"`
	StateFile     string `toml:"state_file"`
	DatabasePath  string `toml:"database_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisKey      string `toml:"redis_key"`

	EmailEnabled    bool     `toml:"email_enabled"`
	EmailSMTPServer string   `toml:"email_smtp_server"`
	EmailSMTPPort   int      `toml:"email_smtp_port"`
	EmailSender     string   `toml:"email_sender"`
	EmailPassword   string   `toml:"email_password"`
	EmailRecipients []string `toml:"email_recipients"`

	TelegramBotToken string  `toml:"telegram_bot_token"`
	TelegramChatIDs  []int64 `toml:"telegram_chat_ids"`

	// NotifyInclude and NotifyExclude hold "[field:]value" or
	// "[field:]/regexp/" rules applied before any notification is sent.
	NotifyInclude []string `toml:"notify_include"`
	NotifyExclude []string `toml:"notify_exclude"`

	ListenAddr           string `toml:"listen_addr"`
	WebhookSecret        string `toml:"webhook_secret"`
	WebhookRatePerMinute int    `toml:"webhook_rate_per_minute"`
	CheckTimeoutSeconds  int    `toml:"check_timeout_seconds"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LogLevel:             "info",
		CheckIntervalMinutes: 3,
		BaseURL:              DefaultBaseURL,
		HTTPTimeoutSeconds:   10,
		StateBackend:         BackendFile,
		StateFile:            "availability_state.json",
		DatabasePath:         "./data/tracker.db",
		RedisAddr:            "localhost:6379",
		RedisKey:             "nyurban:state",
		EmailSMTPServer:      "smtp.gmail.com",
		EmailSMTPPort:        587,
		ListenAddr:           ":5000",
		WebhookRatePerMinute: 30,
		CheckTimeoutSeconds:  300,
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// it exists), then variables from ./.env (if present, never overriding the
// real environment), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TRACKER_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.BaseURL, "BASE_URL")
	setString(&cfg.StateBackend, "STATE_BACKEND")
	setString(&cfg.StateFile, "STATE_FILE")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.RedisKey, "REDIS_KEY")
	setString(&cfg.EmailSMTPServer, "EMAIL_SMTP_SERVER")
	setString(&cfg.EmailSender, "EMAIL_SENDER")
	setString(&cfg.EmailPassword, "EMAIL_PASSWORD")
	setString(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.WebhookSecret, "WEBHOOK_SECRET")

	if port := os.Getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}
	setString(&cfg.ListenAddr, "LISTEN_ADDR")

	ints := []struct {
		key string
		dst *int
	}{
		{"CHECK_INTERVAL_MINUTES", &cfg.CheckIntervalMinutes},
		{"HTTP_TIMEOUT_SECONDS", &cfg.HTTPTimeoutSeconds},
		{"REDIS_DB", &cfg.RedisDB},
		{"EMAIL_SMTP_PORT", &cfg.EmailSMTPPort},
		{"WEBHOOK_RATE_PER_MINUTE", &cfg.WebhookRatePerMinute},
		{"CHECK_TIMEOUT_SECONDS", &cfg.CheckTimeoutSeconds},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if raw := os.Getenv("EMAIL_ENABLED"); raw != "" {
		cfg.EmailEnabled = strings.EqualFold(strings.TrimSpace(raw), "true")
	}

	if raw := os.Getenv("EMAIL_RECIPIENT"); raw != "" {
		cfg.EmailRecipients = ParseRecipients(raw)
	}
	if raw := os.Getenv("NOTIFY_INCLUDE"); raw != "" {
		cfg.NotifyInclude = splitList(raw)
	}
	if raw := os.Getenv("NOTIFY_EXCLUDE"); raw != "" {
		cfg.NotifyExclude = splitList(raw)
	}

	if raw := os.Getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		var ids []int64
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat ID %q in TELEGRAM_CHAT_IDS: %w", s, err)
			}
			ids = append(ids, id)
		}
		cfg.TelegramChatIDs = ids
	}
	return nil
}

// ParseRecipients splits a comma-separated address list, dropping blanks.
func ParseRecipients(raw string) []string {
	return splitList(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = n
	return nil
}

// Validate checks value ranges and the backend name.
func (c *Config) Validate() error {
	if c.CheckIntervalMinutes < 0 {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must not be negative")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.CheckTimeoutSeconds <= 0 {
		return fmt.Errorf("CHECK_TIMEOUT_SECONDS must be positive")
	}
	switch c.StateBackend {
	case BackendFile, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}
	if _, err := filter.ParseRules(c.NotifyInclude, c.NotifyExclude); err != nil {
		return fmt.Errorf("notify rules: %w", err)
	}
	return nil
}

// CheckInterval returns the minimum time between two check cycles.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// HTTPTimeout returns the per-location fetch timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CheckTimeout bounds one webhook-triggered cycle.
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.CheckTimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether Telegram notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && len(c.TelegramChatIDs) > 0
}
