// Package app wires settings, logging, telemetry, metrics and the datastore
// into the services the command line runs.
package app

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/visits-go/internal/conf"
	"github.com/tphakala/visits-go/internal/datastore"
	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/monitoring"
	"github.com/tphakala/visits-go/internal/observability"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/pagination"
	"github.com/tphakala/visits-go/internal/report"
	"github.com/tphakala/visits-go/internal/telemetry"
	"github.com/tphakala/visits-go/internal/visits"
)

// Version is set at build time.
var Version = "dev"

// App holds the long-lived components of one command invocation.
type App struct {
	Settings *conf.Settings
	Log      logger.Logger
	Store    *datastore.Store
	Metrics  *observability.Metrics // nil unless metrics are enabled

	central  *logger.CentralLogger
	endpoint *observability.Endpoint
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New initialises logging, telemetry, metrics and the database. The metrics
// endpoint runs until Close.
func New(ctx context.Context, settings *conf.Settings) (*App, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(central)

	a := &App{
		Settings: settings,
		Log:      central.Module("app"),
		central:  central,
	}

	if err := telemetry.InitSentry(&settings.Telemetry, telemetry.Options{
		Release: Version,
		Logger:  central.Module("telemetry"),
	}); err != nil {
		a.Log.Warn("telemetry disabled", logger.Error(err))
	}

	ctx, a.cancel = context.WithCancel(ctx)
	var storeMetrics *metrics.DatastoreMetrics
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			a.Close()
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "init_metrics").
				Build()
		}
		endpoint := observability.NewEndpoint(settings.Metrics.Listen, m)
		if err := endpoint.Start(ctx, &a.wg); err != nil {
			a.Close()
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("listen", settings.Metrics.Listen).
				Build()
		}
		a.Metrics = m
		a.endpoint = endpoint
		storeMetrics = m.Datastore
	}

	store, err := datastore.Open(&settings.Database, datastore.Options{
		EventTTL: settings.Cache.EventTTL,
		Logger:   central.Module("datastore"),
		Metrics:  storeMetrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	return a, nil
}

// Close stops the metrics endpoint, closes the database and flushes logs
// and telemetry. It is safe to call on a partially initialised App.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("closing database", logger.Error(err))
		}
	}
	telemetry.Shutdown()
	_ = a.central.Flush()
	_ = a.central.Close()
}

// MetricsAddr returns the address the metrics endpoint listens on, or ""
// when metrics are disabled.
func (a *App) MetricsAddr() string {
	if a.endpoint == nil {
		return ""
	}
	return a.endpoint.Addr()
}

func (a *App) visitMetrics() *metrics.VisitMetrics {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics.Visits
}

// Collector returns a collector over the datastore configured from settings.
func (a *App) Collector() *pagination.Collector {
	s := &a.Settings.Visits
	return pagination.NewCollector(a.Store, pagination.Config{
		MaxRecordings: s.MaxRecordings,
		MaxBatch:      s.MaxBatch,
		Aggregation: visits.Options{
			GroupBy:      visits.GroupBy(s.GroupBy),
			EventMaxTime: s.EventMaxTime,
			Logger:       a.central.Module("visits"),
		},
		Metrics: a.visitMetrics(),
	})
}

// Reports returns a report builder correlating audio bait from the datastore.
func (a *App) Reports() (*report.Builder, error) {
	loc, err := a.Settings.Visits.Location()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return report.NewBuilder(a.Collector(), a.Store, report.Options{
		Location:          loc,
		AudioBaitInterval: a.Settings.Visits.AudioBaitInterval,
		Logger:            a.central.Module("report"),
		Metrics:           a.visitMetrics(),
	}), nil
}

// Monitoring returns the monitoring page service.
func (a *App) Monitoring() *monitoring.Service {
	return monitoring.NewService(a.Collector(), monitoring.Options{
		PageDuration: a.Settings.Monitoring.PageDuration,
		Logger:       a.central.Module("monitoring"),
		Metrics:      a.visitMetrics(),
	})
}

// WithTrace tags ctx with a fresh trace id so one query can be followed
// through the logs.
func WithTrace(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return logger.WithTraceID(ctx, id), id
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryProcessing).
			Build()
	}
	return nil
}
