// Package shmem manages the shared memory region that carries windowed
// loudness samples from the audio process to an external visualization
// consumer. The region holds two single-producer/single-consumer lock-free
// rings plus a consumer-owned closed flag; its byte layout is a cross-process
// ABI and must stay identical in every build that maps it.
package shmem

import (
	"sync/atomic"
	"unsafe"
)

// RingCapacity is the number of float32 slots per channel. The producer
// emits at most a few samples per second (one per analysis window), so a
// consumer polling at any reasonable rate never sees the ring wrap. Must
// be a power of two.
const RingCapacity = 128

const ringMask = RingCapacity - 1

// regionMagic guards the mapped layout against skewed builds ("MM01").
const regionMagic uint32 = 0x4d4d3031

// Field offsets of RegionLayout. The layout is the wire format between
// independently built processes; these numbers are load-bearing.
//
//	offset    0  magic   uint32 (atomic)
//	offset    4  closed  uint32 (atomic)  0 = open, 1 = consumer has closed
//	offset    8  In      FloatRing
//	offset  528  Out     FloatRing
//
// FloatRing, 520 bytes:
//
//	offset 0  write cursor  uint32 (atomic), free-running
//	offset 4  read cursor   uint32 (atomic), free-running
//	offset 8  slots         [128]float32
//
// The closed flag is a single byte conceptually; it occupies a full uint32
// because Go has no sub-word atomics.
const (
	// RegionSize is the exact size in bytes of the mapped structure.
	RegionSize = 8 + 2*ringSize

	ringSize = 8 + 4*RingCapacity
)

// Compile-time ABI guards: either expression overflows an unsigned constant
// if the struct sizes drift from the documented layout.
const (
	_ = RegionSize - unsafe.Sizeof(RegionLayout{})
	_ = unsafe.Sizeof(RegionLayout{}) - RegionSize
	_ = ringSize - unsafe.Sizeof(FloatRing{})
	_ = unsafe.Sizeof(FloatRing{}) - ringSize
)

// FloatRing is a bounded single-producer/single-consumer ring of float32
// samples living inside the shared region. The write cursor is advanced
// only by the producer, the read cursor only by the consumer; both are
// free-running, a cursor modulo RingCapacity selects the slot. Neither
// side ever blocks: when the producer laps a stalled consumer, the oldest
// unread samples are overwritten (telemetry, not a transaction log).
type FloatRing struct {
	write atomic.Uint32
	read  atomic.Uint32
	slots [RingCapacity]float32
}

// Write publishes one sample. Producer-only. It never blocks and never
// allocates; safe to call from a hard real-time audio callback. The slot
// store happens before the release-store of the write cursor, so a
// consumer that observes the advanced cursor also observes the sample.
func (r *FloatRing) Write(v float32) {
	w := r.write.Load()
	r.slots[w&ringMask] = v
	r.write.Store(w + 1)
}

// TryRead returns the next unread sample, or ok=false when the ring is
// empty. Consumer-only, never blocks. A consumer that fell a full lap or
// more behind is snapped forward past the slot aliasing the producer's
// next write target: that slot may be mid-store, so the oldest safely
// readable sample sits one position later.
func (r *FloatRing) TryRead() (v float32, ok bool) {
	rd := r.read.Load()
	w := r.write.Load()
	if w == rd {
		return 0, false
	}
	if w-rd >= RingCapacity {
		rd = w - RingCapacity + 1
	}
	v = r.slots[rd&ringMask]
	// The producer may have advanced into this slot between the cursor
	// load and the slot read, or may be storing into it right now if it
	// sits exactly one lap ahead. Re-check and discard the possibly torn
	// value.
	if w2 := r.write.Load(); w2-rd >= RingCapacity {
		r.read.Store(w2 - RingCapacity + 1)
		return 0, false
	}
	r.read.Store(rd + 1)
	return v, true
}

// Pending returns how many unread samples the ring currently holds,
// capped at RingCapacity-1: the slot aliasing the producer's next write
// target is never handed out. Consumer-side convenience for drain loops.
func (r *FloatRing) Pending() uint32 {
	n := r.write.Load() - r.read.Load()
	if n >= RingCapacity {
		return RingCapacity - 1
	}
	return n
}

// RegionLayout is the fixed-layout structure mapped into both processes.
// The audio process is the sole writer of the ring payloads; the consumer
// process is the sole writer of the closed flag and the sole reader of the
// payloads.
type RegionLayout struct {
	magic  atomic.Uint32
	closed atomic.Uint32

	// In carries windowed input-loudness peaks, Out the output side.
	In  FloatRing
	Out FloatRing
}

// Closed reports whether the consumer has signaled voluntary shutdown.
// The flag is one-shot: it stays set until the region is destroyed and a
// fresh one is created.
func (l *RegionLayout) Closed() bool {
	return l.closed.Load() != 0
}

// SetClosed marks the region closed. Consumer-only; the producer polls
// this once per window boundary and stops touching the rings once set.
func (l *RegionLayout) SetClosed() {
	l.closed.Store(1)
}
