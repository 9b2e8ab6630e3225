package flags

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "info",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var Platform = &cli.StringFlag{
	Name:  "platform",
	Usage: "The server software to moderate",
	Validator: func(value string) error {
		if value != "misskey" && value != "mastodon" {
			return fmt.Errorf("invalid platform: %s, allowed values are: misskey, mastodon", value)
		}
		return nil
	},
	Sources: cli.EnvVars("FEDIMOD_PLATFORM"),
}

var Site = &cli.StringFlag{
	Name:    "site",
	Usage:   "Base URL of the server, e.g. https://example.social",
	Sources: cli.EnvVars("FEDIMOD_SITE"),
}

var APIKey = &cli.StringFlag{
	Name:    "api-key",
	Usage:   "Admin API token",
	Sources: cli.EnvVars("FEDIMOD_API_KEY"),
}

var StreamChannel = &cli.StringFlag{
	Name:    "stream-channel",
	Usage:   "Misskey streaming channel to watch",
	Value:   "globalTimeline",
	Sources: cli.EnvVars("FEDIMOD_STREAM_CHANNEL"),
}

var Patterns = &cli.StringFlag{
	Name:    "patterns",
	Usage:   "Path to the JSON file with banned text and QR patterns",
	Value:   "patterns.json",
	Sources: cli.EnvVars("FEDIMOD_PATTERNS"),
}

var Production = &cli.BoolFlag{
	Name:    "production",
	Usage:   "Skip all checks for trusted users instead of only discounting them",
	Value:   false,
	Sources: cli.EnvVars("FEDIMOD_PRODUCTION"),
}

var Suspend = &cli.BoolFlag{
	Name:    "suspend",
	Usage:   "Suspend authors of posts that cross the spam threshold",
	Value:   true,
	Sources: cli.EnvVars("FEDIMOD_SUSPEND"),
}

var DumpPosts = &cli.BoolFlag{
	Name:    "dump-posts",
	Usage:   "Log every raw stream payload, non-production only",
	Value:   false,
	Sources: cli.EnvVars("FEDIMOD_DUMP_POSTS"),
}

var DatabaseURL = &cli.StringFlag{
	Name:    "database-url",
	Usage:   "Postgres URL for the audit trail, empty disables it",
	Sources: cli.EnvVars("FEDIMOD_DATABASE_URL"),
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "Listen address of the metrics server",
	Value:   ":8080",
	Sources: cli.EnvVars("FEDIMOD_METRICS_ADDR"),
}
