// Package diag forwards built errors to Sentry when crash reporting is
// enabled. Reporting is strictly opt-in and events are scrubbed of
// host-identifying data before they leave the process.
package diag

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/Navezjt/master-me/internal/conf"
	"github.com/Navezjt/master-me/internal/errors"
	"github.com/Navezjt/master-me/internal/logging"
)

var initialized atomic.Bool

// Init sets up the Sentry client and registers the error reporter hook.
// It is a no-op when diagnostics are disabled or no DSN is configured.
func Init(settings *conf.Settings, version string) error {
	log := logging.ForService("diag")
	if !settings.Diag.Enabled || settings.Diag.DSN == "" {
		log.Info("crash reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Diag.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		ServerName:       "", // never leak the hostname
		Environment:      "production",
		Release:          "master-me@" + version,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return errors.New(err).
			Component("diag").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("instance_id", instanceID())
	})

	errors.SetReporter(captureEnhanced)
	initialized.Store(true)
	log.Info("crash reporting enabled", "instance_id", instanceID())
	return nil
}

// Flush drains pending events. Call before process exit.
func Flush(timeout time.Duration) {
	if initialized.Load() {
		sentry.Flush(timeout)
	}
}

// captureEnhanced forwards a built error with its component and category
// as grouping tags.
func captureEnhanced(ee *errors.EnhancedError) {
	if !initialized.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for k, v := range ee.Context {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(ee)
	})
}

// scrubEvent strips user and host details from every outgoing event.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	return event
}

// instanceID returns a stable anonymous identifier, persisted next to the
// config file so repeated reports from one install group together.
func instanceID() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return uuid.NewString()
	}
	idFile := filepath.Join(dir, "master-me", ".instance_id")

	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(idFile), 0o755); err == nil {
		if err := os.WriteFile(idFile, []byte(id), 0o644); err != nil {
			slog.Debug("could not persist instance id", "error", err)
		}
	}
	return id
}
