// defaults.go: default values for settings
package conf

import "github.com/spf13/viper"

// MinimumWindowFrames is the absolute floor for the loudness analysis
// window. Even very small host blocks never push the metering cadence
// below this, so low-latency configurations still produce a usable
// handful of samples per second instead of one per block.
const MinimumWindowFrames = 512

func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "master-me")
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "master-me.log")

	viper.SetDefault("audio.source", "")
	viper.SetDefault("audio.samplerate", 48000)
	viper.SetDefault("audio.blocksize", 1024)

	viper.SetDefault("mastering.mode", "simple")
	viper.SetDefault("mastering.inputgain", 0.0)
	viper.SetDefault("mastering.ceiling", -1.0)
	viper.SetDefault("mastering.releasems", 60.0)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.region", "")
	viper.SetDefault("telemetry.minwindowframes", MinimumWindowFrames)

	viper.SetDefault("diag.enabled", false)
	viper.SetDefault("diag.dsn", "")

	viper.SetDefault("monitor.metricsaddr", "")
	viper.SetDefault("monitor.pollintervalms", 50)
}
