// config.go: settings struct for the master-me mastering chain and the
// viper plumbing that loads it from file, environment and defaults.
package conf

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// LogSettings controls the optional rotating file log.
type LogSettings struct {
	Enabled bool   // true to write a JSON log file
	Path    string // log file path
}

// MainSettings contains application-wide settings.
type MainSettings struct {
	Name string      // instance name attached to logs and crash reports
	Log  LogSettings // file log settings
}

// AudioSettings describes the host-side audio configuration for the
// standalone commands. A plugin host would supply these instead.
type AudioSettings struct {
	Source     string // capture device name, empty for system default
	SampleRate int    // samples per second per channel
	BlockSize  int    // frames per processing block
}

// MasteringSettings parameterizes the built-in DSP stage.
type MasteringSettings struct {
	Mode      string  // "simple" or "advanced", consumed by UI-facing logic
	InputGain float64 // input gain trim in dB
	Ceiling   float64 // output peak ceiling in dBFS
	ReleaseMS float64 // limiter release time constant in milliseconds
}

// TelemetrySettings controls loudness publication to the external
// visualization consumer.
type TelemetrySettings struct {
	Enabled         bool   // connect the shared region at startup
	Region          string // shared memory region name
	MinWindowFrames int    // absolute floor for the analysis window
}

// DiagSettings controls crash/error reporting.
type DiagSettings struct {
	Enabled bool   // true to forward enhanced errors to Sentry
	DSN     string // Sentry DSN, empty disables even when Enabled
}

// MonitorSettings configures the consumer-side monitor command.
type MonitorSettings struct {
	MetricsAddr    string // listen address for the Prometheus endpoint, empty disables
	PollIntervalMS int    // channel drain interval in milliseconds
}

// Settings is the root configuration for all commands.
type Settings struct {
	Debug bool // true to enable debug logging

	Main      MainSettings
	Audio     AudioSettings
	Mastering MasteringSettings
	Telemetry TelemetrySettings
	Diag      DiagSettings
	Monitor   MonitorSettings
}

// Load reads the configuration from file (config.yaml in the working
// directory or under $HOME/.config/master-me), environment (MASTERME_*)
// and defaults, and validates it. Commands receive the returned settings
// explicitly; there is no process-wide singleton.
func Load() (*Settings, error) {
	setDefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/master-me")
	viper.SetEnvPrefix("masterme")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// a missing config file is fine, defaults apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
