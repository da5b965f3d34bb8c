// Package datastore reads recordings and device events from the recordings
// database through GORM. SQLite, MySQL and PostgreSQL are supported.
package datastore

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/visits-go/internal/conf"
	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/observability/metrics"
)

// DefaultSlowQueryThreshold is the duration above which queries are logged as slow.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// Store implements visits.RecordingSource and visits.EventSource.
type Store struct {
	db      *gorm.DB
	log     logger.Logger
	events  *cache.Cache
	metrics *metrics.DatastoreMetrics
}

// Options configures a Store.
type Options struct {
	// EventTTL is how long audio-bait lookups are cached; zero disables caching.
	EventTTL time.Duration
	Logger   logger.Logger
	Metrics  *metrics.DatastoreMetrics // optional
}

// Open connects to the database configured in settings and migrates the schema.
func Open(settings *conf.DatabaseSettings, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("datastore")
		opts.Logger = log
	}

	var dialector gorm.Dialector
	switch settings.Type {
	case conf.DatabaseSQLite:
		path := settings.SQLite.Path
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", path).
					Build()
			}
		}
		dialector = sqlite.Open(path)
	case conf.DatabaseMySQL:
		dialector = mysql.Open(MySQLDSN(&settings.MySQL))
	case conf.DatabasePostgres:
		dialector = postgres.Open(PostgresDSN(&settings.Postgres))
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	slow := settings.SlowQueryThreshold
	if slow <= 0 {
		slow = DefaultSlowQueryThreshold
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slow),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("database_type", settings.Type).
			Build()
	}

	log.Info("database opened", logger.String("type", settings.Type))
	return NewStore(db, opts)
}

// NewStore wraps an open connection and migrates the schema.
func NewStore(db *gorm.DB, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("datastore")
	}
	if err := db.AutoMigrate(&RecordingRow{}, &TrackRow{}, &TrackTagRow{}, &EventRow{}); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}

	s := &Store{db: db, log: log, metrics: opts.Metrics}
	if opts.EventTTL > 0 {
		// No janitor: expired entries are swept on insert.
		s.events = cache.New(opts.EventTTL, 0)
	}
	return s, nil
}

// recordPool publishes connection pool gauges.
func (s *Store) recordPool() {
	if s.metrics == nil {
		return
	}
	if sqlDB, err := s.db.DB(); err == nil {
		stats := sqlDB.Stats()
		s.metrics.UpdateConnectionMetrics(stats.InUse, stats.Idle)
	}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return sqlDB.Close()
}

// MySQLDSN builds a DSN with UTC time parsing enabled.
func MySQLDSN(cfg *conf.MySQLSettings) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// PostgresDSN builds a keyword/value DSN. Sessions run in UTC.
func PostgresDSN(cfg *conf.PostgresSettings) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := [][2]string{
		{"host", cfg.Host},
		{"port", cfg.Port},
		{"user", cfg.Username},
		{"password", cfg.Password},
		{"dbname", cfg.Database},
		{"sslmode", sslMode},
		{"TimeZone", "UTC"},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		parts = append(parts, kv[0]+"="+quoteDSNValue(kv[1]))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes values containing spaces or quotes.
func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
