package dsp

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// kWeightingOffset compensates the slightly-above-unity gain of the
// K-weighting prefilter at 1 kHz, per BS.1770.
const kWeightingOffset = -0.691

// loudnessFloor is the lowest loudness the meter reports, matching the
// absolute gate of BS.1770 and the reset baseline of the peak tracker.
const loudnessFloor float32 = -70.0

// momentaryWindow is the EBU R128 momentary integration time.
const momentaryWindow = 0.4 // seconds

// Meter estimates the momentary loudness of a stereo signal. Each block
// is K-weighted, its mean square power summed across channels and folded
// into an exponential average with a 400 ms time constant. The estimate
// is O(block) with no allocation once the scratch buffers have grown to
// the host's block size.
type Meter struct {
	sampleRate float64
	coeffs     [2]biquadCoeff
	states     [2][2]biquadState // [channel][stage]
	power      float64
	primed     bool
	tmp, tmp2  []float32
}

// NewMeter returns a Meter for the given sample rate.
func NewMeter(sampleRate int) *Meter {
	return &Meter{
		sampleRate: float64(sampleRate),
		coeffs:     kWeighting(float64(sampleRate)),
	}
}

// Process folds one block into the loudness estimate and returns the
// updated momentary loudness in LUFS, clamped to the -70 floor. channels
// must hold two planar buffers of at least frames samples each.
func (m *Meter) Process(channels [][]float32, frames int) float32 {
	if frames == 0 {
		return m.Loudness()
	}
	setSliceLength(&m.tmp, frames)
	setSliceLength(&m.tmp2, frames)

	var blockPower float64
	for chn := 0; chn < 2; chn++ {
		copy(m.tmp, channels[chn][:frames])
		for stage := range m.coeffs {
			m.states[chn][stage].filter(m.tmp, m.coeffs[stage])
		}
		squared := vek32.Mul_Into(m.tmp2, m.tmp, m.tmp)
		blockPower += float64(vek32.Mean(squared))
	}

	if !m.primed {
		m.power = blockPower
		m.primed = true
	} else {
		alpha := 1.0 - math.Exp(-float64(frames)/(momentaryWindow*m.sampleRate))
		m.power += alpha * (blockPower - m.power)
	}
	return m.Loudness()
}

// Loudness returns the current momentary loudness estimate in LUFS.
func (m *Meter) Loudness() float32 {
	if m.power <= 0 {
		return loudnessFloor
	}
	l := float32(10.0*math.Log10(m.power) + kWeightingOffset)
	if l < loudnessFloor {
		return loudnessFloor
	}
	return l
}

// Reset clears the filter memory and the power average.
func (m *Meter) Reset() {
	m.states = [2][2]biquadState{}
	m.power = 0
	m.primed = false
}

func setSliceLength(slice *[]float32, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]float32, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
