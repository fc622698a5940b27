package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full deployment configuration, loaded once from the
// environment in main and passed by reference into each component.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Key-value store credentials and namespace ids.
	KVToken           string `env:"KV_TOKEN,required"`
	KVAccountID       string `env:"KV_ACCOUNT_ID,required"`
	ConfigNamespaceID string `env:"KV_CONFIG_NAMESPACE_ID,required"`
	DataNamespaceID   string `env:"KV_DATA_NAMESPACE_ID,required"`

	// Which chat backend season announcements go to.
	NotifyTarget string `env:"NOTIFY_TARGET" envDefault:"discord"`

	SlackToken      string `env:"SLACK_TOKEN"`
	SlackChannel    string `env:"SLACK_ANNOUNCEMENT_CHANNEL"`
	SlackMaintainer string `env:"SLACK_MAINTAINER"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
	DiscordMaintainer string `env:"DISCORD_MAINTAINER"`

	RetryInHrs int64 `env:"RETRY_IN_HRS" envDefault:"4"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Maintainer returns the handle to mention when a failure needs operator
// attention, matching the configured notify target.
func (c *Config) Maintainer() string {
	if c.NotifyTarget == "slack" {
		return c.SlackMaintainer
	}
	return c.DiscordMaintainer
}
