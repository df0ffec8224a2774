package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Navezjt/master-me/cmd/devices"
	"github.com/Navezjt/master-me/cmd/file"
	"github.com/Navezjt/master-me/cmd/monitor"
	"github.com/Navezjt/master-me/cmd/realtime"
	"github.com/Navezjt/master-me/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "master-me",
		Short: "master-me mastering chain CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		monitor.Command(settings),
		devices.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// command-line arguments take precedence over file and env values
		return viper.Unmarshal(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.SampleRate, "samplerate", viper.GetInt("audio.samplerate"), "Sample rate in Hz")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.BlockSize, "blocksize", viper.GetInt("audio.blocksize"), "Processing block size in frames")
	rootCmd.PersistentFlags().StringVar(&settings.Telemetry.Region, "region", viper.GetString("telemetry.region"), "Shared memory region name for loudness telemetry")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
