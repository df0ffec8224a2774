package file

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Navezjt/master-me/internal/audio"
	"github.com/Navezjt/master-me/internal/conf"
	"github.com/Navezjt/master-me/internal/dsp"
	"github.com/Navezjt/master-me/internal/engine"
	"github.com/Navezjt/master-me/internal/logging"
)

// Command creates the command for mastering a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Master an audio file",
		Long:  `Run a stereo WAV file through the mastering chain and report its loudness.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path to write the mastered WAV file")

	return cmd
}

func run(settings *conf.Settings, inputPath, outputPath string) error {
	logger := logging.ForService("file")

	chain := dsp.NewChain(settings.Audio.SampleRate, dsp.ChainConfig{
		InputGainDB: settings.Mastering.InputGain,
		CeilingDB:   settings.Mastering.Ceiling,
		ReleaseMS:   settings.Mastering.ReleaseMS,
	})
	eng := engine.New(chain,
		uint32(settings.Telemetry.MinWindowFrames),
		uint32(settings.Audio.BlockSize),
		logger)
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("engine teardown", "error", err)
		}
	}()

	if settings.Telemetry.Enabled {
		if err := eng.SetState(engine.StateKeyTelemetry, settings.Telemetry.Region); err != nil {
			logger.Warn("processing without telemetry", "error", err)
		}
	}
	eng.Activate()

	info, err := audio.ProcessWAV(inputPath, outputPath, settings.Audio.BlockSize,
		func(inputs, outputs [][]float32, frames int) {
			eng.ProcessBlock(
				[][]float32{inputs[0][:frames], inputs[1][:frames]},
				[][]float32{outputs[0][:frames], outputs[1][:frames]})
		})
	if err != nil {
		return err
	}
	if info.SampleRate != settings.Audio.SampleRate {
		// the chain's filters were tuned for the configured rate
		logger.Warn("file sample rate differs from configured rate",
			"file", info.SampleRate, "configured", settings.Audio.SampleRate)
	}

	seconds := float64(info.Frames) / float64(info.SampleRate)
	fmt.Printf("%s: %d frames (%.1fs) at %d Hz\n", inputPath, info.Frames, seconds, info.SampleRate)
	fmt.Printf("momentary loudness in: %.1f LUFS, out: %.1f LUFS\n", chain.LoudnessIn(), chain.LoudnessOut())
	if outputPath != "" {
		fmt.Printf("mastered audio written to %s\n", outputPath)
	}
	return nil
}
