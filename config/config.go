package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// VariantDefaults seed variants built without explicit settings.
type VariantDefaults struct {
	StartingScore int `json:"starting_score" yaml:"starting_score"`
	MaxRounds     int `json:"max_rounds" yaml:"max_rounds"`
}

// Config holds all configurable server parameters.
type Config struct {
	HTTPPort      int `json:"http_port" yaml:"http_port"`
	MaxPlayers    int `json:"max_players" yaml:"max_players"`
	MaxNameLength int `json:"max_name_length" yaml:"max_name_length"`

	// BustNoticeMS is how long a bust notice stays up before it is hidden.
	BustNoticeMS int `json:"bust_notice_ms" yaml:"bust_notice_ms"`

	// SnapshotTTLHours is the freshness window for saved matches; older snapshots are treated as absent.
	SnapshotTTLHours   int `json:"snapshot_ttl_hours" yaml:"snapshot_ttl_hours"`
	SnapshotDebounceMS int `json:"snapshot_debounce_ms" yaml:"snapshot_debounce_ms"`

	// SessionIdleMS is how long a session without clients stays in memory; 0 keeps it forever.
	SessionIdleMS int `json:"session_idle_ms" yaml:"session_idle_ms"`

	// DatabaseURL selects the store: postgres:// for Postgres, sqlite://path or file:path for SQLite, empty for none.
	DatabaseURL string `json:"database_url" yaml:"database_url"`
	// AuthBaseURL is the auth service whose JWKS validates bearer tokens; empty means anonymous device keys only.
	AuthBaseURL string `json:"auth_base_url" yaml:"auth_base_url"`

	LogLevel       string   `json:"log_level" yaml:"log_level"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`

	Defaults VariantDefaults `json:"defaults" yaml:"defaults"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		HTTPPort:           8080,
		MaxPlayers:         8,
		MaxNameLength:      24,
		BustNoticeMS:       1500,
		SnapshotTTLHours:   24,
		SnapshotDebounceMS: 250,
		SessionIdleMS:      60000,
		LogLevel:           "info",
		AllowedOrigins:     []string{"*"},
		Defaults: VariantDefaults{
			StartingScore: 501,
			MaxRounds:     20,
		},
	}
}

// Load reads configuration from an optional config.yaml (or, failing that,
// config.json) in the working directory, then applies environment variable
// overrides. Fields not set in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Warn("failed to parse config.yaml", "tag", "config", "err", err)
		}
	} else if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideInt(&cfg.MaxPlayers, "MAX_PLAYERS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.BustNoticeMS, "BUST_NOTICE_MS")
	overrideInt(&cfg.SnapshotTTLHours, "SNAPSHOT_TTL_HOURS")
	overrideInt(&cfg.SnapshotDebounceMS, "SNAPSHOT_DEBOUNCE_MS")
	overrideInt(&cfg.SessionIdleMS, "SESSION_IDLE_MS")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideList(&cfg.AllowedOrigins, "ALLOWED_ORIGINS")

	return cfg
}

func (c *Config) BustNotice() time.Duration {
	return time.Duration(c.BustNoticeMS) * time.Millisecond
}

func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

func (c *Config) SnapshotDebounce() time.Duration {
	return time.Duration(c.SnapshotDebounceMS) * time.Millisecond
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMS) * time.Millisecond
}

// SlogLevel maps LogLevel to a slog level; unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid env value", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// overrideList splits a comma-separated env value, dropping empty entries.
func overrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*field = out
	}
}
