package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fedimod/internal/audit"
	"fedimod/internal/config"
	"fedimod/internal/core"
)

const (
	// notes/delete is rate limited upstream, so deletes drain one per tick.
	drainInterval     = 1500 * time.Millisecond
	rateLimitCooldown = time.Second
)

var (
	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedimod_deletes_total",
		Help: "The total number of delete attempts, by outcome",
	}, []string{"outcome"})

	suspendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedimod_suspends_total",
		Help: "The total number of suspend calls, by outcome",
	}, []string{"outcome"})
)

// Dispatcher owns the outbound moderation actions. Suspends go out
// immediately and are never retried; deletes drain through a FIFO queue
// that backs off while the upstream reports rate limiting.
type Dispatcher struct {
	Logger *slog.Logger
	Config *config.Config
	API    core.ModerationAPI
	Audit  *audit.Recorder

	// The queue and cooldown timestamp are the only state shared between
	// the drain ticker and the enqueue path.
	mu              sync.Mutex
	queue           []string
	lastRateLimited time.Time

	now func() time.Time
}

func (d *Dispatcher) Init(_ context.Context) error {
	d.Logger = d.Logger.With("component", "dispatch.Dispatcher")
	if d.now == nil {
		d.now = time.Now
	}
	return nil
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.DrainOnce(ctx)
		}
	}
}

// Suspend fires immediately, without retry or ordering guarantees. Failures
// are logged and dropped.
func (d *Dispatcher) Suspend(ctx context.Context, user *core.User) {
	if !d.Config.SuspendEnabled {
		return
	}

	d.Logger.Info("suspending user", "user", user.Acct())

	if err := d.API.SuspendAccount(ctx, user.ID); err != nil {
		suspendsTotal.WithLabelValues("failed").Inc()
		d.Logger.Error("suspend failed", "user", user.Acct(), "error", err)
		d.Audit.Record(ctx, core.ActionSuspend, user.ID, "failed")
		return
	}

	suspendsTotal.WithLabelValues("ok").Inc()
	d.Audit.Record(ctx, core.ActionSuspend, user.ID, "suspended")
}

// EnqueueDelete appends the post to the delete queue.
func (d *Dispatcher) EnqueueDelete(postID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, postID)
}

// QueueDepth reports how many deletes are still waiting.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// DrainOnce attempts at most one delete from the queue head. A tick inside
// the rate-limit cooldown window is a no-op, not a wasted call. A
// rate-limited item goes back to the front of the queue; any other failure
// drops it since it is not expected to be transient.
func (d *Dispatcher) DrainOnce(ctx context.Context) {
	d.mu.Lock()
	if d.now().Sub(d.lastRateLimited) < rateLimitCooldown || len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	postID := d.queue[0]
	d.queue = d.queue[1:]
	d.mu.Unlock()

	err := d.API.DeletePost(ctx, postID)
	switch {
	case errors.Is(err, core.ErrRateLimited):
		deletesTotal.WithLabelValues("rate_limited").Inc()
		d.Logger.Warn("rate limited deleting post, trying again", "post", postID)

		d.mu.Lock()
		d.queue = append([]string{postID}, d.queue...)
		d.lastRateLimited = d.now()
		d.mu.Unlock()

	case err != nil:
		deletesTotal.WithLabelValues("failed").Inc()
		d.Logger.Error("delete failed, dropping", "post", postID, "error", err)
		d.Audit.Record(ctx, core.ActionDelete, postID, "failed")

	default:
		deletesTotal.WithLabelValues("deleted").Inc()
		d.Logger.Info("deleted post", "post", postID)
		d.Audit.Record(ctx, core.ActionDelete, postID, "deleted")
	}
}
