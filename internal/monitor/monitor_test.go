//go:build unix

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Navezjt/master-me/internal/meter"
	"github.com/Navezjt/master-me/internal/shmem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRegionName(t *testing.T) string {
	t.Helper()
	return "test-" + uuid.New().String()[:8]
}

func newTestMonitor(t *testing.T) (*Monitor, *Metrics) {
	t.Helper()
	metrics, err := NewMetrics()
	require.NoError(t, err)
	mon, err := New(testRegionName(t), metrics, nil)
	require.NoError(t, err)
	return mon, metrics
}

func TestDrainOnceEmpty(t *testing.T) {
	mon, _ := newTestMonitor(t)
	defer func() { require.NoError(t, mon.Close()) }()

	assert.Empty(t, mon.DrainOnce())

	lufsIn, lufsOut := mon.Last()
	assert.Equal(t, meter.Floor, lufsIn)
	assert.Equal(t, meter.Floor, lufsOut)
}

func TestDrainOnceReadsBothChannels(t *testing.T) {
	mon, metrics := newTestMonitor(t)
	defer func() { require.NoError(t, mon.Close()) }()

	// Publish through a second handle the way the audio process would.
	producer, err := shmem.CreateOrConnect(mon.region.Name())
	require.NoError(t, err)
	defer func() { require.NoError(t, producer.Detach()) }()

	producer.Layout().In.Write(-23.5)
	producer.Layout().In.Write(-21.0)
	producer.Layout().Out.Write(-14.2)

	readings := mon.DrainOnce()
	require.Len(t, readings, 3)
	assert.Equal(t, meter.Input, readings[0].Channel)
	assert.InDelta(t, -23.5, readings[0].LUFS, 1e-6)
	assert.Equal(t, meter.Input, readings[1].Channel)
	assert.Equal(t, meter.Output, readings[2].Channel)
	assert.InDelta(t, -14.2, readings[2].LUFS, 1e-6)

	lufsIn, lufsOut := mon.Last()
	assert.InDelta(t, -21.0, lufsIn, 1e-6)
	assert.InDelta(t, -14.2, lufsOut, 1e-6)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.samplesRead.WithLabelValues("in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.samplesRead.WithLabelValues("out")))
	assert.InDelta(t, -21.0, testutil.ToFloat64(metrics.loudness.WithLabelValues("in")), 1e-6)
}

func TestCloseSetsClosedFlag(t *testing.T) {
	mon, _ := newTestMonitor(t)

	producer, err := shmem.CreateOrConnect(mon.region.Name())
	require.NoError(t, err)
	defer func() { require.NoError(t, producer.Close()) }()

	require.False(t, producer.Layout().Closed())
	require.NoError(t, mon.Close())
	assert.True(t, producer.Layout().Closed())
}

func TestRunDrainsUntilCanceled(t *testing.T) {
	mon, metrics := newTestMonitor(t)

	producer, err := shmem.CreateOrConnect(mon.region.Name())
	require.NoError(t, err)
	defer func() { require.NoError(t, producer.Close()) }()

	producer.Layout().In.Write(-18.0)
	producer.Layout().Out.Write(-12.0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.samplesRead.WithLabelValues("out")) == 1.0
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, producer.Layout().Closed())
}
