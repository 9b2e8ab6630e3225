package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"fedimod/internal/config"
	"fedimod/internal/core"
	"fedimod/internal/scoring"
	"fedimod/internal/stream"
)

// Ingestor feeds the live event stream through a parse-filter-examine
// pipeline. Malformed or uninteresting payloads are skipped, never fatal.
type Ingestor struct {
	Logger  *slog.Logger
	Config  *config.Config
	Adapter core.Adapter
	Scorer  *scoring.Scorer

	watcher *stream.Watcher
	ch      chan pips.D[[]byte]
}

func (i *Ingestor) Init(_ context.Context) error {
	i.Logger = i.Logger.With("component", "agent.Ingestor")
	i.ch = make(chan pips.D[[]byte])

	i.watcher = &stream.Watcher{
		Logger: i.Logger,
		Dial:   i.Adapter.OpenStream,
	}

	return nil
}

func (i *Ingestor) Shutdown(_ context.Context) error {
	defer close(i.ch)
	return nil
}

func (i *Ingestor) Run(ctx context.Context) error {
	i.watcher.Handler = func(raw []byte) {
		i.push(ctx, raw)
	}

	go func() {
		_ = i.watcher.Run(ctx)
	}()

	return pips.New[[]byte, any]().
		Then(apply.Map(i.parse)).
		Then(apply.Filter(func(_ context.Context, post *core.Post) (bool, error) {
			return post != nil, nil
		})).
		Then(apply.Each(func(ctx context.Context, post *core.Post) error {
			i.Scorer.Examine(ctx, post)
			return nil
		})).
		Run(ctx, i.ch).
		Wait(ctx)
}

// push hands one raw payload to the pipeline. Once the pipeline stopped
// reading on cancellation the send must not linger: Shutdown closes the
// channel and a blocked send would panic.
func (i *Ingestor) push(ctx context.Context, raw []byte) {
	select {
	case i.ch <- pips.NewD(raw):
	case <-ctx.Done():
	}
}

// parse never propagates an error: a payload the adapter cannot or will not
// turn into a post yields nil and the pipeline moves on.
func (i *Ingestor) parse(_ context.Context, raw []byte) (*core.Post, error) {
	if i.Config.DumpPosts && !i.Config.Production {
		i.Logger.Debug("stream payload", "raw", string(raw))
	}

	post, err := i.Adapter.ParseEvent(raw)
	if err != nil {
		if !errors.Is(err, core.ErrIgnoreEvent) {
			i.Logger.Error("failed to parse stream payload", "error", err)
		}
		return nil, nil
	}

	return post, nil
}
