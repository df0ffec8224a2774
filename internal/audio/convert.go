// Package audio is the host-side glue for the standalone commands: device
// capture, PCM conversion and WAV file streaming. A plugin host would
// replace this package entirely; the engine only ever sees planar float32
// blocks.
package audio

import "encoding/binary"

// S16LEToPlanar converts interleaved 16-bit little-endian stereo PCM into
// two planar float32 buffers scaled to [-1, 1). It returns the number of
// frames converted, bounded by the smaller of the input and the buffers.
func S16LEToPlanar(data []byte, left, right []float32) int {
	frames := len(data) / 4 // 2 channels x 2 bytes
	if frames > len(left) {
		frames = len(left)
	}
	if frames > len(right) {
		frames = len(right)
	}
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(data[i*4:]))
		r := int16(binary.LittleEndian.Uint16(data[i*4+2:]))
		left[i] = float32(l) / 32768.0
		right[i] = float32(r) / 32768.0
	}
	return frames
}

// clampUnit keeps a sample inside [-1, 1] before integer conversion.
func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
