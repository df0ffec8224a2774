package dsp

import "math"

// biquadCoeff holds one second-order filter section.
type biquadCoeff struct {
	b0, b1, b2, a1, a2 float32
}

// biquadState is the per-channel filter memory of one section.
type biquadState struct {
	x1, x2, y1, y2 float32
}

// filter runs the section over buf in place.
func (s *biquadState) filter(buf []float32, c biquadCoeff) {
	st := *s
	for i := range buf {
		x := buf[i]
		y := c.b0*x + c.b1*st.x1 + c.b2*st.x2 - c.a1*st.y1 - c.a2*st.y2
		st.x2, st.x1 = st.x1, x
		st.y2, st.y1 = st.y1, y
		buf[i] = y
	}
	st.flushDenormals()
	*s = st
}

// flushDenormals zeroes filter memory too small to matter. Go cannot set
// the FPU flush-to-zero mode, so subnormal recursion tails are cut off
// here to keep the filters out of the slow denormal path.
func (s *biquadState) flushDenormals() {
	const tiny = 1e-20
	if s.y1 < tiny && s.y1 > -tiny {
		s.y1 = 0
	}
	if s.y2 < tiny && s.y2 > -tiny {
		s.y2 = 0
	}
}

// kWeighting returns the two-stage K-weighting prefilter of ITU-R
// BS.1770-5 (shelving boost plus revised low-cut B-curve) computed for the
// given sample rate via the bilinear transform of the analog prototype.
func kWeighting(sampleRate float64) [2]biquadCoeff {
	// stage 1: high-frequency shelving boost
	const (
		shelfFreq = 1681.9744509555319
		shelfGain = 3.99984385397
		shelfQ    = 0.7071752369554196
	)
	k := math.Tan(math.Pi * shelfFreq / sampleRate)
	vh := math.Pow(10.0, shelfGain/20.0)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1.0 + k/shelfQ + k*k
	shelf := biquadCoeff{
		b0: float32((vh + vb*k/shelfQ + k*k) / a0),
		b1: float32(2.0 * (k*k - vh) / a0),
		b2: float32((vh - vb*k/shelfQ + k*k) / a0),
		a1: float32(2.0 * (k*k - 1.0) / a0),
		a2: float32((1.0 - k/shelfQ + k*k) / a0),
	}

	// stage 2: high-pass
	const (
		hpFreq = 38.13547087602444
		hpQ    = 0.5003270373238773
	)
	k = math.Tan(math.Pi * hpFreq / sampleRate)
	a0 = 1.0 + k/hpQ + k*k
	highpass := biquadCoeff{
		b0: 1.0,
		b1: -2.0,
		b2: 1.0,
		a1: float32(2.0 * (k*k - 1.0) / a0),
		a2: float32((1.0 - k/hpQ + k*k) / a0),
	}

	return [2]biquadCoeff{shelf, highpass}
}
