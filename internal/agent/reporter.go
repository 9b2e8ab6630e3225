package agent

import (
	"context"
	"log/slog"
	"time"

	"fedimod/internal/scoring"
)

const reportInterval = time.Minute

// Reporter logs a periodic heartbeat with the number of posts examined since
// the last report.
type Reporter struct {
	Logger *slog.Logger
	Scorer *scoring.Scorer
}

func (r *Reporter) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "agent.Reporter")
	return nil
}

func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	last := r.Scorer.Examined()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			total := r.Scorer.Examined()
			r.Logger.Info("scanned posts", "count", total-last, "total", total)
			last = total
		}
	}
}
