// Package config loads the YAML configuration, expands environment
// variables, and validates the result.
package config

import (
	"fmt"
	"os"
)

// Access policy modes. The choice is explicit: an empty allow list never
// silently means "everyone".
const (
	AccessOpen      = "open"
	AccessAllowlist = "allowlist"
)

// Config is the root configuration for linkpeek.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Access     AccessConfig     `yaml:"access"`
	Inspect    InspectConfig    `yaml:"inspect"`
	Platform   PlatformConfig   `yaml:"platform"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

type TelegramConfig struct {
	// Token is the bot token. Falls back to LINKPEEK_BOT_TOKEN.
	Token string `yaml:"token"`

	// PollTimeoutSeconds bounds one long-poll getUpdates call.
	PollTimeoutSeconds int `yaml:"pollTimeoutSeconds"`
}

type AccessConfig struct {
	// Mode is "open" (serve everyone, warn at startup) or "allowlist"
	// (serve only the listed chats).
	Mode string `yaml:"mode"`

	// Chats are the allow-listed chat IDs; required in allowlist mode.
	Chats []int64 `yaml:"chats"`
}

type InspectConfig struct {
	UserAgent      string `yaml:"userAgent"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxBodyBytes   int64  `yaml:"maxBodyBytes"`
}

type PlatformConfig struct {
	// DomainSuffix marks a final host as belonging to the content platform.
	DomainSuffix string `yaml:"domainSuffix"`
}

type DownloaderConfig struct {
	// Enabled turns on the yt-dlp relay for platform URLs.
	Enabled bool `yaml:"enabled"`

	// Command is the downloader binary to invoke.
	Command string `yaml:"command"`

	// TempDir is passed to the downloader as its temp download path.
	TempDir string `yaml:"tempDir"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Validate checks the configuration for startup-blocking problems and pulls
// the token from the environment when the file leaves it empty.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("LINKPEEK_BOT_TOKEN")
	}
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (or set LINKPEEK_BOT_TOKEN)")
	}
	if c.Telegram.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("telegram.pollTimeoutSeconds must be positive")
	}

	switch c.Access.Mode {
	case AccessOpen:
		// Valid; the caller is expected to warn loudly at startup.
	case AccessAllowlist:
		if len(c.Access.Chats) == 0 {
			return fmt.Errorf("access.mode is %q but access.chats is empty; set access.mode: %s to serve everyone", AccessAllowlist, AccessOpen)
		}
	default:
		return fmt.Errorf("access.mode must be %q or %q, got %q", AccessOpen, AccessAllowlist, c.Access.Mode)
	}

	if c.Platform.DomainSuffix == "" {
		return fmt.Errorf("platform.domainSuffix must not be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}
	return nil
}
