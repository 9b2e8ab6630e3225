package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zhulik/pips"
)

func TestPushDeliversToPipeline(t *testing.T) {
	t.Parallel()

	i := &Ingestor{ch: make(chan pips.D[[]byte])}

	go i.push(t.Context(), []byte("payload"))

	select {
	case d := <-i.ch:
		raw, err := d.Unpack()
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), raw)
	case <-time.After(time.Second):
		t.Fatal("payload never arrived")
	}
}

// A payload in flight while nobody reads anymore must not keep the sender
// blocked past cancellation.
func TestPushReturnsOnCancel(t *testing.T) {
	t.Parallel()

	i := &Ingestor{ch: make(chan pips.D[[]byte])}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		i.push(ctx, []byte("payload"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked after cancellation")
	}
}
