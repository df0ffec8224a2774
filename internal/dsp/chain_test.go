package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000

func makeStereo(frames int) [][]float32 {
	return [][]float32{make([]float32, frames), make([]float32, frames)}
}

// sine fills both channels with a sine of the given frequency and linear
// amplitude, continuing across calls via the returned phase.
func sine(buf [][]float32, frames int, freq, amp, phase float64) float64 {
	step := 2 * math.Pi * freq / testSampleRate
	for i := 0; i < frames; i++ {
		v := float32(amp * math.Sin(phase))
		buf[0][i] = v
		buf[1][i] = v
		phase += step
	}
	return phase
}

func TestMeterSilenceIsFloor(t *testing.T) {
	m := NewMeter(testSampleRate)
	buf := makeStereo(1024)

	for i := 0; i < 50; i++ {
		m.Process(buf, 1024)
	}
	assert.Equal(t, loudnessFloor, m.Loudness())
}

func TestMeterSineLoudnessPlausible(t *testing.T) {
	m := NewMeter(testSampleRate)
	buf := makeStereo(1024)

	// feed ~2 s of a 1 kHz sine at -20 dBFS amplitude
	var phase float64
	for i := 0; i < 2*testSampleRate/1024; i++ {
		phase = sine(buf, 1024, 1000, 0.1, phase)
		m.Process(buf, 1024)
	}

	// stereo -23 dB mean-square per channel sums to ~-20 LUFS; the
	// K-weighting shelf is near unity at 1 kHz
	l := m.Loudness()
	assert.Greater(t, l, float32(-24.0))
	assert.Less(t, l, float32(-16.0))
}

func TestMeterLouderSignalMetersHigher(t *testing.T) {
	quiet := NewMeter(testSampleRate)
	loud := NewMeter(testSampleRate)
	buf := makeStereo(1024)

	var phase float64
	for i := 0; i < 20; i++ {
		phase = sine(buf, 1024, 440, 0.05, phase)
		quiet.Process(buf, 1024)
	}
	phase = 0
	for i := 0; i < 20; i++ {
		phase = sine(buf, 1024, 440, 0.5, phase)
		loud.Process(buf, 1024)
	}

	assert.Greater(t, loud.Loudness(), quiet.Loudness())
}

func TestChainAppliesGain(t *testing.T) {
	chain := NewChain(testSampleRate, ChainConfig{InputGainDB: 6.0, CeilingDB: 0.0, ReleaseMS: 60})
	in := makeStereo(256)
	out := makeStereo(256)
	sine(in, 256, 1000, 0.1, 0)

	chain.Compute(256, in, out)

	// +6 dB is a factor just shy of 2
	assert.InDelta(t, in[0][10]*1.9953, out[0][10], 1e-3)
}

func TestChainLimiterHoldsCeiling(t *testing.T) {
	chain := NewChain(testSampleRate, ChainConfig{InputGainDB: 0, CeilingDB: -1.0, ReleaseMS: 60})
	in := makeStereo(4096)
	out := makeStereo(4096)
	sine(in, 4096, 100, 1.0, 0) // full-scale input

	chain.Compute(4096, in, out)

	ceiling := float32(math.Pow(10, -1.0/20.0))
	for _, ch := range out {
		for i, v := range ch {
			require.LessOrEqual(t, abs32(v), ceiling*1.0001, "sample %d exceeds ceiling", i)
		}
	}
}

func TestChainLoudnessReadings(t *testing.T) {
	chain := NewChain(testSampleRate, ChainConfig{InputGainDB: -10.0, CeilingDB: 0.0, ReleaseMS: 60})
	in := makeStereo(1024)
	out := makeStereo(1024)

	var phase float64
	for i := 0; i < 30; i++ {
		phase = sine(in, 1024, 1000, 0.25, phase)
		chain.Compute(1024, in, out)
	}

	assert.Greater(t, chain.LoudnessIn(), loudnessFloor)
	assert.Greater(t, chain.LoudnessOut(), loudnessFloor)
	assert.Less(t, chain.LoudnessOut(), chain.LoudnessIn(), "attenuating chain meters quieter output")
}

func TestChainReset(t *testing.T) {
	chain := NewChain(testSampleRate, ChainConfig{InputGainDB: 0, CeilingDB: 0, ReleaseMS: 60})
	in := makeStereo(1024)
	out := makeStereo(1024)
	sine(in, 1024, 1000, 0.5, 0)
	chain.Compute(1024, in, out)
	require.Greater(t, chain.LoudnessIn(), loudnessFloor)

	chain.Reset()
	assert.Equal(t, loudnessFloor, chain.LoudnessIn())
	assert.Equal(t, loudnessFloor, chain.LoudnessOut())
}
