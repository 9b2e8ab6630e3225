package cmd

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"fedimod/internal/agent"
	"fedimod/internal/audit"
	"fedimod/internal/cmd/flags"
	"fedimod/internal/config"
	"fedimod/internal/core"
	"fedimod/internal/dispatch"
	"fedimod/internal/mastodon"
	"fedimod/internal/metrics"
	"fedimod/internal/misskey"
	"fedimod/internal/qrscan"
	"fedimod/internal/scoring"
)

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Watch the server's timeline and kill spam as it arrives",
	Flags: []cli.Flag{
		flags.Platform,
		flags.Site,
		flags.APIKey,
		flags.StreamChannel,
		flags.Patterns,
		flags.Production,
		flags.Suspend,
		flags.DumpPosts,
		flags.DatabaseURL,
		flags.MetricsAddr,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		var adapter core.Adapter
		switch cfg.Platform {
		case config.PlatformMastodon:
			adapter = mastodon.New(slog.Default(), cfg)
		default:
			adapter = misskey.New(slog.Default(), cfg)
		}

		return run(ctx, cfg,
			pal.Provide[core.Adapter](adapter),
			pal.Provide[core.ModerationAPI](adapter),
			pal.Provide[core.ImageFetcher](adapter),
			pal.Provide(&audit.Recorder{}),
			pal.Provide(&qrscan.Scanner{}),
			pal.Provide(&dispatch.Dispatcher{}),
			pal.Provide(&scoring.Scorer{}),
			pal.Provide(&agent.Ingestor{}),
			pal.Provide(&agent.Poller{}),
			pal.Provide(&agent.Reporter{}),
			pal.Provide(&metrics.HTTPServer{}),
			pal.Provide(&metrics.QueueCollector{}),
		)
	},
}
