// Package monitor implements the consumer side of the loudness telemetry
// channel: it attaches to the shared memory region the audio process
// publishes into, drains the windowed samples at its own pace and exposes
// them as Prometheus metrics and log output. On shutdown it sets the
// region's closed flag so the producer parks publication, then detaches
// without destroying the region, which the audio process owns.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Navezjt/master-me/internal/meter"
	"github.com/Navezjt/master-me/internal/shmem"
)

// Reading is one windowed loudness sample drained from the region.
type Reading struct {
	Channel meter.Channel
	LUFS    float32
}

// Monitor drains loudness telemetry from a shared region.
type Monitor struct {
	region  *shmem.Region
	metrics *Metrics
	log     *slog.Logger

	lastIn, lastOut float32
}

// New attaches to the named shared region. The region is created when the
// producer has not bound it yet; cursors of an existing region are left
// untouched so the consumer resumes from the producer's position.
func New(regionName string, metrics *Metrics, logger *slog.Logger) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	region, err := shmem.CreateOrConnect(regionName)
	if err != nil {
		return nil, err
	}
	logger.Info("attached to telemetry region",
		"region", regionName, "created", region.Created())
	return &Monitor{
		region:  region,
		metrics: metrics,
		log:     logger,
		lastIn:  meter.Floor,
		lastOut: meter.Floor,
	}, nil
}

// DrainOnce reads every pending sample from both channels, in
// window-completion order per channel, and feeds them to the metrics.
func (m *Monitor) DrainOnce() []Reading {
	layout := m.region.Layout()
	if layout == nil {
		return nil
	}

	var readings []Reading
	for {
		v, ok := layout.In.TryRead()
		if !ok {
			break
		}
		m.lastIn = v
		readings = append(readings, Reading{Channel: meter.Input, LUFS: v})
		if m.metrics != nil {
			m.metrics.Observe("in", v)
		}
	}
	for {
		v, ok := layout.Out.TryRead()
		if !ok {
			break
		}
		m.lastOut = v
		readings = append(readings, Reading{Channel: meter.Output, LUFS: v})
		if m.metrics != nil {
			m.metrics.Observe("out", v)
		}
	}
	return readings
}

// Run polls the region until ctx is canceled, then closes the channel
// cooperatively. Consumers are expected to poll much faster than the
// metering cadence (a handful of samples per second) so the ring never
// wraps on them.
func (m *Monitor) Run(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.Close()
		case <-ticker.C:
			if readings := m.DrainOnce(); len(readings) > 0 {
				m.log.Info("windowed loudness",
					"lufs_in", m.lastIn,
					"lufs_out", m.lastOut,
					"samples", len(readings))
			}
		}
	}
}

// Close signals voluntary shutdown to the producer and detaches from the
// region. Safe to call redundantly.
func (m *Monitor) Close() error {
	if layout := m.region.Layout(); layout != nil {
		layout.SetClosed()
	}
	return m.region.Detach()
}

// Last returns the most recent loudness pair, Floor before any sample
// arrived.
func (m *Monitor) Last() (lufsIn, lufsOut float32) {
	return m.lastIn, m.lastOut
}
