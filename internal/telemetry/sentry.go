// Package telemetry provides privacy-compliant error tracking through Sentry.
// Reporting is opt-in and only enhanced errors from internal/errors are sent.
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/visits-go/internal/conf"
	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
)

// FlushTimeout bounds how long Shutdown waits for queued events.
const FlushTimeout = 2 * time.Second

// Options configures Sentry initialisation.
type Options struct {
	Release string
	Logger  logger.Logger
	// Transport overrides the HTTP transport; tests pass a MockTransport.
	Transport sentry.Transport
}

// InitSentry initialises the Sentry SDK and installs the error reporter.
// It does nothing unless telemetry is enabled in settings.
func InitSentry(settings *conf.TelemetrySettings, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("telemetry")
	}
	if !settings.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("visits-go@%s", opts.Release),
		Transport:        opts.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureScope(opts.Release)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	log.Info("sentry telemetry enabled", logger.String("environment", settings.Environment))
	return nil
}

// Shutdown uninstalls the reporter and flushes queued events.
func Shutdown() {
	errors.SetTelemetryReporter(nil)
	sentry.Flush(FlushTimeout)
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

func configureScope(release string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "visits-go",
			"version":    release,
			"go_version": runtime.Version(),
		})
	})
}
