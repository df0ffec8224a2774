package shmem

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWriteThenRead(t *testing.T) {
	var r FloatRing

	r.Write(-14.5)
	v, ok := r.TryRead()
	require.True(t, ok)
	assert.InDelta(t, -14.5, v, 1e-6)

	_, ok = r.TryRead()
	assert.False(t, ok, "ring drained")
}

func TestRingEmpty(t *testing.T) {
	var r FloatRing

	_, ok := r.TryRead()
	assert.False(t, ok)
	assert.Zero(t, r.Pending())
}

func TestRingPreservesOrder(t *testing.T) {
	var r FloatRing

	for i := 0; i < 10; i++ {
		r.Write(float32(i))
	}
	require.Equal(t, uint32(10), r.Pending())

	for i := 0; i < 10; i++ {
		v, ok := r.TryRead()
		require.True(t, ok)
		assert.Equal(t, float32(i), v)
	}
}

// After capacity+1 writes without a read, the oldest sample is gone and
// the reader resumes at the oldest safely readable one. Sample 0 was
// overwritten and sample 1 occupies the slot the producer writes next, so
// sample 2 is the first handed out.
func TestRingOverwritesOldest(t *testing.T) {
	var r FloatRing

	for i := 0; i <= RingCapacity; i++ {
		r.Write(float32(i))
	}

	v, ok := r.TryRead()
	require.True(t, ok)
	assert.Equal(t, float32(2), v, "samples 0 and 1 are not retrievable")
	assert.Equal(t, uint32(RingCapacity-2), r.Pending())
}

// A reader exactly one lap behind must never be handed the slot the
// producer's next Write stores into; the read resumes one sample later.
func TestRingLappedReaderSkipsNextWriteSlot(t *testing.T) {
	var r FloatRing

	// write cursor one full lap ahead: slot 0 aliases the next write
	for i := 0; i < RingCapacity; i++ {
		r.Write(float32(i))
	}
	require.Equal(t, uint32(RingCapacity-1), r.Pending())

	v, ok := r.TryRead()
	require.True(t, ok)
	assert.Equal(t, float32(1), v, "slot 0 is the producer's next target")

	// the skipped sample stays skipped even as the reader catches up
	v, ok = r.TryRead()
	require.True(t, ok)
	assert.Equal(t, float32(2), v)
}

func TestRingWrapsCursor(t *testing.T) {
	var r FloatRing

	// several full revolutions with an in-step reader
	for i := 0; i < 5*RingCapacity; i++ {
		r.Write(float32(i))
		v, ok := r.TryRead()
		require.True(t, ok)
		require.Equal(t, float32(i), v)
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	var r FloatRing
	const total = 20000

	done := make(chan struct{})
	go func() {
		defer close(done)
		last := float32(-1)
		read := 0
		for read < total {
			v, ok := r.TryRead()
			if !ok {
				continue
			}
			// overwrite-oldest may skip values but never reorders them
			if !assert.Greater(t, v, last) {
				return
			}
			last = v
			read++
			if int(last) == total-1 {
				return
			}
		}
	}()

	for i := 0; i < total; i++ {
		r.Write(float32(i))
	}
	<-done
}

// A consumer pausing between reads falls laps behind a fast producer; every
// value it is handed must still be one the producer fully published, in
// order, never a slot mid-store.
func TestRingConcurrentLaggingConsumer(t *testing.T) {
	var r FloatRing
	const total = 50000

	done := make(chan struct{})
	go func() {
		defer close(done)
		last := float32(-1)
		for {
			v, ok := r.TryRead()
			if !ok {
				runtime.Gosched()
				continue
			}
			if !assert.Greater(t, v, last) {
				return
			}
			last = v
			if int(v) == total-1 {
				return
			}
			time.Sleep(50 * time.Microsecond)
		}
	}()

	for i := 0; i < total; i++ {
		r.Write(float32(i))
	}
	<-done
}
