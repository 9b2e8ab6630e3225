package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fedimod/internal/dispatch"
)

const sampleInterval = 15 * time.Second

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fedimod_delete_queue_depth",
	Help: "Deletes waiting in the dispatch queue",
})

// QueueCollector samples the delete queue depth into a gauge.
type QueueCollector struct {
	Dispatcher *dispatch.Dispatcher
}

func (c *QueueCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			queueDepth.Set(float64(c.Dispatcher.QueueDepth()))
		}
	}
}
