package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fedimod/internal/core"
	"fedimod/pkg/retry"
)

// State of the live connection. All transitions happen on the watcher's own
// scheduler loop.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDegraded
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	defaultProbeInterval = 3 * time.Second
	defaultMissThreshold = 3
)

var reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fedimod_stream_reconnects_total",
	Help: "The total number of stream reconnects",
})

// Dialer opens a fresh live connection.
type Dialer func(ctx context.Context) (core.StreamConn, error)

// Handler receives every raw payload read from the stream.
type Handler func(raw []byte)

// Watcher keeps one live event connection healthy: it probes the peer on a
// fixed interval, counts unanswered probes and replaces the connection when
// the peer goes quiet or the read loop fails.
type Watcher struct {
	Logger        *slog.Logger
	Dial          Dialer
	Handler       Handler
	ProbeInterval time.Duration
	MissThreshold int

	mu     sync.Mutex
	state  State
	misses int
}

func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	if w.state != s {
		w.Logger.Debug("stream state change", "from", w.state.String(), "to", s.String())
		w.state = s
	}
	w.mu.Unlock()
}

// Run drives the connection lifecycle until ctx is canceled. Dial failures
// retry immediately and indefinitely.
func (w *Watcher) Run(ctx context.Context) error {
	if w.ProbeInterval == 0 {
		w.ProbeInterval = defaultProbeInterval
	}
	if w.MissThreshold == 0 {
		w.MissThreshold = defaultMissThreshold
	}

	w.setState(StateConnecting)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var conn core.StreamConn
		err := retry.Wrap(func() error {
			var err error
			conn, err = w.Dial(ctx)
			return err
		}, func(err error, _ int) bool {
			w.Logger.Error("stream dial failed, retrying", "error", err)
			w.setState(StateReconnecting)
			return ctx.Err() == nil
		})()
		if err != nil {
			return ctx.Err()
		}

		w.setState(StateConnected)
		w.Logger.Info("stream connected")

		w.watch(ctx, conn)

		if ctx.Err() == nil {
			reconnects.Inc()
			w.Logger.Info("reconnecting stream")
			w.setState(StateReconnecting)
		}
	}
}

// watch reads the connection until it dies or the keepalive gives up. The
// prober lives and dies with this one connection.
func (w *Watcher) watch(ctx context.Context, conn core.StreamConn) {
	w.mu.Lock()
	w.misses = 0
	w.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		w.ackLiveness()
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	msgs := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- data:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(w.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return

		case err := <-readErr:
			w.Logger.Error("stream read failed", "error", err)
			conn.Close()
			return

		case data := <-msgs:
			w.Handler(data)

		case <-ticker.C:
			if w.probe(conn) {
				continue
			}
			w.Logger.Error("keepalive timeout, closing stream")
			conn.Close()
			return
		}
	}
}

// probe sends one liveness ping. Reports false once the miss threshold is
// exceeded or the ping cannot be written.
func (w *Watcher) probe(conn core.StreamConn) bool {
	w.mu.Lock()
	if w.misses >= w.MissThreshold {
		w.mu.Unlock()
		return false
	}
	if w.misses > 0 && w.state == StateConnected {
		w.state = StateDegraded
	}
	w.misses++
	w.mu.Unlock()

	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.ProbeInterval)); err != nil {
		w.Logger.Error("keepalive probe failed", "error", err)
		return false
	}
	return true
}

// ackLiveness resets the miss counter on any pong from the peer.
func (w *Watcher) ackLiveness() {
	w.mu.Lock()
	w.misses = 0
	if w.state == StateDegraded {
		w.state = StateConnected
	}
	w.mu.Unlock()
}
