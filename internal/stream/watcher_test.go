package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fedimod/internal/core"
)

type fakeConn struct {
	mu          sync.Mutex
	pongHandler func(string) error

	msgs   chan []byte
	pings  chan struct{}
	closed chan struct{}

	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs:   make(chan []byte, 16),
		pings:  make(chan struct{}, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.msgs:
		return 1, msg, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteControl(_ int, _ []byte, _ time.Time) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	case c.pings <- struct{}{}:
		return nil
	}
}

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	c.pongHandler = h
	c.mu.Unlock()
}

func (c *fakeConn) pong() {
	c.mu.Lock()
	h := c.pongHandler
	c.mu.Unlock()
	if h != nil {
		_ = h("")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func newWatcher(dial Dialer, handler Handler) *Watcher {
	if handler == nil {
		handler = func([]byte) {}
	}
	return &Watcher{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Dial:          dial,
		Handler:       handler,
		ProbeInterval: 10 * time.Millisecond,
		MissThreshold: 3,
	}
}

func TestWatcherDeliversMessages(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	conn.msgs <- []byte("one")
	conn.msgs <- []byte("two")

	got := make(chan []byte, 2)
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) { return conn, nil },
		func(raw []byte) { got <- raw },
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Equal(t, []byte("one"), <-got)
	require.Equal(t, []byte("two"), <-got)
}

func TestWatcherReconnectsWhenPingsGoUnanswered(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) {
			dials.Add(1)
			return newFakeConn(), nil
		},
		nil,
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Nobody answers the pings, so the first connection has to be replaced.
	require.Eventually(t, func() bool {
		return dials.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcherStaysConnectedWhilePongsArrive(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	conn := newFakeConn()
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) {
			dials.Add(1)
			return conn, nil
		},
		nil,
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Answer every ping for a while.
	timeout := time.After(150 * time.Millisecond)
	for answered := 0; answered < 8; {
		select {
		case <-conn.pings:
			conn.pong()
			answered++
		case <-timeout:
			t.Fatal("watcher stopped pinging")
		}
	}

	require.Equal(t, int32(1), dials.Load())
	require.Equal(t, StateConnected, w.State())
}

func TestWatcherDegradesOnMissThenRecovers(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) { return conn, nil },
		nil,
	)
	// Plenty of headroom so a slow scheduler cannot force a reconnect.
	w.MissThreshold = 10

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// First ping goes unanswered; by the time the second one is written the
	// watcher has marked the connection degraded.
	<-conn.pings
	<-conn.pings
	require.Equal(t, StateDegraded, w.State())

	// Answering pings again brings the connection back to healthy.
	conn.pong()
	require.Eventually(t, func() bool {
		select {
		case <-conn.pings:
			conn.pong()
		default:
		}
		return w.State() == StateConnected
	}, time.Second, time.Millisecond)
}

func TestWatcherReconnectsOnReadFailure(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	first := newFakeConn()
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) {
			dials.Add(1)
			return first, nil
		},
		nil,
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	first.Close()

	require.Eventually(t, func() bool {
		return dials.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcherRetriesFailedDials(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	w := newWatcher(
		func(_ context.Context) (core.StreamConn, error) {
			if dials.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return newFakeConn(), nil
		},
		nil,
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return dials.Load() >= 3 && w.State() == StateConnected
	}, time.Second, 5*time.Millisecond)
}
