// Package config loads and validates shellclaw configuration.
//
// Configuration is layered: defaults, then an optional YAML file, then
// environment variables (loaded from .env/.env.local when present). The
// environment always wins, so a container deployment can run without any
// config file at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/channels/discord"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
)

// Config holds the full shellclaw configuration.
type Config struct {
	// Sandbox configures the execution engine and session state.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Discord configures the Discord channel.
	Discord discord.Config `yaml:"discord"`

	// Gemini configures the planning oracle.
	Gemini GeminiConfig `yaml:"gemini"`

	// Scheduler configures the cron job system.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// SandboxConfig configures the command execution core.
type SandboxConfig struct {
	// Root is the absolute directory no session may escape.
	// Defaults to the process working directory.
	Root string `yaml:"root"`

	// DefaultMode is the instruction mode for sessions without an
	// explicit override ("command" or "chat").
	DefaultMode string `yaml:"default_mode"`

	// CommandTimeoutSeconds is the wall-clock deadline per command.
	CommandTimeoutSeconds float64 `yaml:"command_timeout_seconds"`

	// MaxPlanSteps caps oracle-produced plans.
	MaxPlanSteps int `yaml:"max_plan_steps"`

	// CwdStorePath is the working-directory snapshot file.
	CwdStorePath string `yaml:"cwd_store_path"`

	// ModeStorePath is the mode snapshot file.
	ModeStorePath string `yaml:"mode_store_path"`
}

// CommandTimeout returns the per-command deadline as a duration.
func (s SandboxConfig) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutSeconds * float64(time.Second))
}

// GeminiConfig configures the planning oracle.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Optional; chat mode
	// degrades to the placeholder command without it.
	APIKey string `yaml:"api_key"`

	// Model is the Gemini model ID.
	Model string `yaml:"model"`
}

// SchedulerConfig configures the cron job system.
type SchedulerConfig struct {
	// Enabled turns the scheduler on or off.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite job database location.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("text", "json").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Root:                  ".",
			DefaultMode:           string(session.ModeCommand),
			CommandTimeoutSeconds: 60,
			MaxPlanSteps:          5,
			CwdStorePath:          "./data/cwd.json",
			ModeStorePath:         "./data/modes.json",
		},
		Discord: discord.DefaultConfig(),
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			DBPath:  "./data/jobs.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values that would break startup.
// The Discord token is checked separately after credential resolution.
func (c *Config) Validate() error {
	if _, err := session.ParseMode(c.Sandbox.DefaultMode); err != nil {
		return fmt.Errorf("config: invalid default_mode %q (want command or chat)", c.Sandbox.DefaultMode)
	}
	if c.Sandbox.CommandTimeoutSeconds <= 0 {
		return fmt.Errorf("config: command_timeout_seconds must be positive, got %v", c.Sandbox.CommandTimeoutSeconds)
	}
	if c.Sandbox.MaxPlanSteps < 1 {
		return fmt.Errorf("config: max_plan_steps must be at least 1, got %d", c.Sandbox.MaxPlanSteps)
	}
	if c.Sandbox.Root == "" {
		return fmt.Errorf("config: sandbox root must not be empty")
	}
	return nil
}

// ApplyEnv overlays environment variables onto the configuration.
// Unset variables leave the current value untouched.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SANDBOX_ROOT"); v != "" {
		c.Sandbox.Root = v
	}
	if v := os.Getenv("DEFAULT_MODE"); v != "" {
		c.Sandbox.DefaultMode = v
	}
	if v := os.Getenv("COMMAND_TIMEOUT_SECONDS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: parsing COMMAND_TIMEOUT_SECONDS: %w", err)
		}
		c.Sandbox.CommandTimeoutSeconds = f
	}
	if v := os.Getenv("MAX_PLAN_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: parsing MAX_PLAN_STEPS: %w", err)
		}
		c.Sandbox.MaxPlanSteps = n
	}
	if v := os.Getenv("CWD_STORE_PATH"); v != "" {
		c.Sandbox.CwdStorePath = v
	}
	if v := os.Getenv("MODE_STORE_PATH"); v != "" {
		c.Sandbox.ModeStorePath = v
	}

	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v, ok := os.LookupEnv("ALLOWED_GUILD_IDS"); ok {
		c.Discord.AllowedGuilds = splitIDList(v)
	}
	if v, ok := os.LookupEnv("ALLOWED_CHANNEL_IDS"); ok {
		c.Discord.AllowedChannels = splitIDList(v)
	}
	if v, ok := os.LookupEnv("ALLOWED_USER_IDS"); ok {
		c.Discord.AllowedUsers = splitIDList(v)
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv("SCHEDULER_DB_PATH"); v != "" {
		c.Scheduler.DBPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// splitIDList parses a comma-separated ID list. An explicitly empty
// variable yields an empty (unrestricted) list.
func splitIDList(v string) []string {
	var ids []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
