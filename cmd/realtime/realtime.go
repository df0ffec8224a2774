package realtime

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Navezjt/master-me/internal/audio"
	"github.com/Navezjt/master-me/internal/conf"
	"github.com/Navezjt/master-me/internal/dsp"
	"github.com/Navezjt/master-me/internal/engine"
	"github.com/Navezjt/master-me/internal/logging"
)

// Command creates the command for realtime capture and mastering.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Master incoming audio in realtime",
		Long:  "Capture audio from a device, run it through the mastering chain and publish windowed loudness telemetry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Audio.Source, "source", viper.GetString("audio.source"), "Audio capture source (\"sysdefault\", \"USB Audio\", etc.)")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Publish loudness telemetry to the shared region")
	cmd.Flags().Float64Var(&settings.Mastering.InputGain, "gain", viper.GetFloat64("mastering.inputgain"), "Input gain trim in dB")
	cmd.Flags().Float64Var(&settings.Mastering.Ceiling, "ceiling", viper.GetFloat64("mastering.ceiling"), "Output peak ceiling in dBFS")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("realtime")

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

	if err := eng.SetState(engine.StateKeyMode, settings.Mastering.Mode); err != nil {
		return err
	}
	if settings.Telemetry.Enabled {
		// a missing consumer is not fatal, audio keeps running untouched
		if err := eng.SetState(engine.StateKeyTelemetry, settings.Telemetry.Region); err != nil {
			logger.Warn("starting without telemetry", "error", err)
		}
	}
	eng.Activate()

	blockFrames := settings.Audio.BlockSize
	outputs := [][]float32{make([]float32, blockFrames), make([]float32, blockFrames)}

	return audio.Capture(ctx, settings, logger, func(inputs [][]float32) {
		eng.ProcessBlock(inputs, outputs)
	})
}
