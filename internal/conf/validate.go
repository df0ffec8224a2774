package conf

import (
	"github.com/Navezjt/master-me/internal/errors"
)

// ValidateSettings checks the loaded settings for values the rest of the
// system cannot operate with.
func ValidateSettings(s *Settings) error {
	if s.Audio.SampleRate <= 0 {
		return errors.Newf("sample rate must be positive, got %d", s.Audio.SampleRate).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Audio.BlockSize <= 0 {
		return errors.Newf("block size must be positive, got %d", s.Audio.BlockSize).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Telemetry.MinWindowFrames < 1 {
		return errors.Newf("telemetry minimum window must be at least 1 frame, got %d", s.Telemetry.MinWindowFrames).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Mastering.Mode != "simple" && s.Mastering.Mode != "advanced" {
		return errors.Newf("mastering mode must be simple or advanced, got %q", s.Mastering.Mode).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Mastering.ReleaseMS <= 0 {
		return errors.Newf("limiter release must be positive, got %f", s.Mastering.ReleaseMS).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Telemetry.Enabled && s.Telemetry.Region == "" {
		return errors.Newf("telemetry enabled but no region name configured").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}
