package audio

import (
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Navezjt/master-me/internal/errors"
)

// WAVInfo summarizes a processed file.
type WAVInfo struct {
	SampleRate int
	BitDepth   int
	Frames     int
}

// ProcessWAV streams the stereo WAV file at srcPath through process block
// by block and, when dstPath is non-empty, writes the processed audio to
// it with the source's format. process receives planar float32 input and
// output buffers sized to at most blockFrames.
func ProcessWAV(srcPath, dstPath string, blockFrames int, process func(inputs, outputs [][]float32, frames int)) (*WAVInfo, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", srcPath).
			Build()
	}
	defer func() { _ = src.Close() }()

	decoder := wav.NewDecoder(src)
	if !decoder.IsValidFile() {
		return nil, errors.Newf("%s is not a valid WAV file", srcPath).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("path", srcPath).
			Build()
	}
	format := decoder.Format()
	if format.NumChannels != 2 {
		return nil, errors.Newf("mastering chain is stereo, %s has %d channel(s)", srcPath, format.NumChannels).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("path", srcPath).
			Build()
	}

	var encoder *wav.Encoder
	if dstPath != "" {
		dst, err := os.Create(dstPath)
		if err != nil {
			return nil, errors.New(err).
				Component("audio").
				Category(errors.CategoryFileIO).
				Context("path", dstPath).
				Build()
		}
		defer func() { _ = dst.Close() }()
		encoder = wav.NewEncoder(dst, format.SampleRate, int(decoder.BitDepth), format.NumChannels, 1)
		defer func() { _ = encoder.Close() }()
	}

	scale := float32(int(1) << (decoder.BitDepth - 1))
	buf := &gaudio.IntBuffer{
		Data:           make([]int, blockFrames*2),
		Format:         format,
		SourceBitDepth: int(decoder.BitDepth),
	}
	inputs := [][]float32{make([]float32, blockFrames), make([]float32, blockFrames)}
	outputs := [][]float32{make([]float32, blockFrames), make([]float32, blockFrames)}

	info := &WAVInfo{SampleRate: format.SampleRate, BitDepth: int(decoder.BitDepth)}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.New(err).
				Component("audio").
				Category(errors.CategoryFileIO).
				Context("path", srcPath).
				Build()
		}
		if n == 0 {
			break
		}
		frames := n / 2
		for i := 0; i < frames; i++ {
			inputs[0][i] = float32(buf.Data[i*2]) / scale
			inputs[1][i] = float32(buf.Data[i*2+1]) / scale
		}

		process(inputs, outputs, frames)

		if encoder != nil {
			for i := 0; i < frames; i++ {
				buf.Data[i*2] = int(clampUnit(outputs[0][i]) * (scale - 1))
				buf.Data[i*2+1] = int(clampUnit(outputs[1][i]) * (scale - 1))
			}
			buf.Data = buf.Data[:n]
			if err := encoder.Write(buf); err != nil {
				return nil, errors.New(err).
					Component("audio").
					Category(errors.CategoryFileIO).
					Context("path", dstPath).
					Build()
			}
			buf.Data = buf.Data[:cap(buf.Data)]
		}
		info.Frames += frames
	}
	return info, nil
}
