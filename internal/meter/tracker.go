// Package meter implements windowed peak-loudness tracking for the mastering
// chain. A Tracker keeps the running maximum of the per-block loudness
// estimates of the input and output signals and signals when the configured
// analysis window has elapsed, carrying leftover frames into the next window
// so the metering cadence does not drift when block sizes do not evenly
// divide the window.
package meter

// Channel identifies one of the two metered signals.
type Channel int

const (
	// Input is the loudness of the signal entering the mastering chain.
	Input Channel = iota
	// Output is the loudness of the processed signal.
	Output

	numChannels
)

// Floor is the reset baseline in LUFS. It matches the -70 LUFS absolute
// gate of ITU-R BS.1770 and is the lowest value a peak can take.
const Floor float32 = -70.0

// Tracker accumulates peak loudness over a configurable frame window.
// It is a pure numeric state machine: no allocation, no blocking, O(1)
// per call, safe to drive from a real-time audio callback. It is not
// safe for concurrent use; the audio thread owns it exclusively.
type Tracker struct {
	windowFrames uint32
	frames       uint32
	peaks        [numChannels]float32
}

// NewTracker returns a Tracker with both peaks at Floor and an empty
// frame accumulator. windowFrames is clamped to at least 1.
func NewTracker(windowFrames uint32) *Tracker {
	t := &Tracker{}
	t.SetWindowFrames(windowFrames)
	t.Reset()
	return t
}

// Observe updates the running maximum for ch with the loudness estimate of
// the current block. Values below the current peak (including anything
// under Floor) leave the peak untouched, so the invariant peak >= Floor
// holds at all times.
func (t *Tracker) Observe(ch Channel, loudness float32) {
	if loudness > t.peaks[ch] {
		t.peaks[ch] = loudness
	}
}

// AdvanceFrames adds n frames to the window accumulator. It returns true
// exactly when the accumulated count reaches the window size, subtracting
// one window and carrying the remainder forward. On a true return the
// caller must read both peaks, publish them, and call Reset.
func (t *Tracker) AdvanceFrames(n uint32) bool {
	t.frames += n
	if t.frames < t.windowFrames {
		return false
	}
	t.frames -= t.windowFrames
	return true
}

// Peak returns the running maximum for ch since the last Reset.
func (t *Tracker) Peak(ch Channel) float32 {
	return t.peaks[ch]
}

// Reset sets both peaks back to Floor. Called once per window, for both
// channels synchronously, after the windowed values have been published.
func (t *Tracker) Reset() {
	for i := range t.peaks {
		t.peaks[i] = Floor
	}
}

// SetWindowFrames reconfigures the analysis window size. The accumulated
// frame count is kept, so a pending window completes under the new size.
func (t *Tracker) SetWindowFrames(n uint32) {
	if n < 1 {
		n = 1
	}
	t.windowFrames = n
}

// WindowFrames returns the configured analysis window size.
func (t *Tracker) WindowFrames() uint32 {
	return t.windowFrames
}

// ResetAccumulator zeroes the frame accumulator, realigning the window to
// a fresh activation of the audio processing.
func (t *Tracker) ResetAccumulator() {
	t.frames = 0
}

// AccumulatedFrames returns the number of frames carried toward the next
// window boundary.
func (t *Tracker) AccumulatedFrames() uint32 {
	return t.frames
}
