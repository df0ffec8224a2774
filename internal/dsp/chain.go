// Package dsp implements the mastering signal chain that feeds the
// loudness telemetry core: an input gain trim, a smoothed peak limiter and
// K-weighted momentary loudness meters for both ends of the chain. The
// orchestrator owns one Chain per plugin instance and calls it
// synchronously from the audio thread; nothing here locks, blocks or
// allocates in steady state.
package dsp

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// ChainConfig parameterizes a Chain.
type ChainConfig struct {
	InputGainDB float64 // gain trim applied before limiting
	CeilingDB   float64 // output peak ceiling in dBFS
	ReleaseMS   float64 // limiter release time constant
}

// Chain is a stereo mastering processor. It satisfies the orchestrator's
// Processor contract: Compute produces output samples from input samples
// and updates the loudness readings read back afterwards.
type Chain struct {
	gain    float32
	ceiling float32
	release float32 // per-sample envelope recovery coefficient

	env float32 // limiter gain envelope, 1 = unity

	meterIn  *Meter
	meterOut *Meter
	lufsIn   float32
	lufsOut  float32
}

// NewChain returns a Chain for the given sample rate.
func NewChain(sampleRate int, cfg ChainConfig) *Chain {
	releaseSamples := cfg.ReleaseMS / 1000.0 * float64(sampleRate)
	if releaseSamples < 1 {
		releaseSamples = 1
	}
	return &Chain{
		gain:     dbToLinear(cfg.InputGainDB),
		ceiling:  dbToLinear(cfg.CeilingDB),
		release:  float32(1.0 - math.Exp(-1.0/releaseSamples)),
		env:      1.0,
		meterIn:  NewMeter(sampleRate),
		meterOut: NewMeter(sampleRate),
		lufsIn:   loudnessFloor,
		lufsOut:  loudnessFloor,
	}
}

// Compute processes frames samples from inputs into outputs (two planar
// channels each) and refreshes the input/output loudness estimates.
func (c *Chain) Compute(frames int, inputs, outputs [][]float32) {
	c.lufsIn = c.meterIn.Process(inputs, frames)

	for chn := 0; chn < 2; chn++ {
		vek32.MulNumber_Into(outputs[chn][:frames], inputs[chn][:frames], c.gain)
	}
	c.limit(outputs, frames)

	c.lufsOut = c.meterOut.Process(outputs, frames)
}

// limit applies an instant-attack, smoothed-release peak limiter keeping
// both channels under the configured ceiling with a shared gain envelope.
func (c *Chain) limit(channels [][]float32, frames int) {
	l, r := channels[0], channels[1]
	env := c.env
	for i := 0; i < frames; i++ {
		peak := abs32(l[i])
		if p := abs32(r[i]); p > peak {
			peak = p
		}

		target := float32(1.0)
		if peak > c.ceiling {
			target = c.ceiling / peak
		}
		if target < env {
			env = target
		} else {
			env += (1.0 - env) * c.release
		}

		l[i] *= env
		r[i] *= env
	}
	const tiny = 1e-20
	if d := 1.0 - env; d < tiny && d > -tiny {
		env = 1.0
	}
	c.env = env
}

// LoudnessIn returns the momentary loudness of the last input block.
func (c *Chain) LoudnessIn() float32 { return c.lufsIn }

// LoudnessOut returns the momentary loudness of the last output block.
func (c *Chain) LoudnessOut() float32 { return c.lufsOut }

// Reset clears meter and limiter state, e.g. on transport restart.
func (c *Chain) Reset() {
	c.meterIn.Reset()
	c.meterOut.Reset()
	c.env = 1.0
	c.lufsIn = loudnessFloor
	c.lufsOut = loudnessFloor
}

func dbToLinear(db float64) float32 {
	return float32(math.Pow(10.0, db/20.0))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
