package agent

import (
	"context"
	"log/slog"
	"time"

	"fedimod/internal/core"
	"fedimod/internal/scoring"
)

const (
	pollInterval = 5 * time.Minute
	pollLimit    = 100
)

// Poller periodically sweeps the recent timeline. It catches posts the live
// stream missed, for example during a reconnect window.
type Poller struct {
	Logger  *slog.Logger
	Adapter core.Adapter
	Scorer  *scoring.Scorer
}

func (p *Poller) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "agent.Poller")
	return nil
}

func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	posts, err := p.Adapter.FetchRecentPosts(ctx, pollLimit)
	if err != nil {
		p.Logger.Error("failed to fetch recent posts", "error", err)
		return
	}

	p.Logger.Debug("sweeping recent posts", "count", len(posts))

	for _, post := range posts {
		p.Scorer.Examine(ctx, post)
	}
}
