package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	v := NewViper()
	require.NoError(t, v.ReadConfig(bytes.NewReader(DefaultConfig())))

	var s Settings
	require.NoError(t, v.Unmarshal(&s))
	require.NoError(t, ValidateSettings(&s))

	assert.Equal(t, DatabaseSQLite, s.Database.Type)
	assert.Equal(t, "visits.db", s.Database.SQLite.Path)
	assert.Equal(t, "3306", s.Database.MySQL.Port)
	assert.Equal(t, 10*time.Minute, s.Visits.EventMaxTime)
	assert.Equal(t, 10*time.Minute, s.Visits.AudioBaitInterval)
	assert.Equal(t, 2000, s.Visits.MaxRecordings)
	assert.Equal(t, 500, s.Visits.MaxBatch)
	assert.Equal(t, "device", s.Visits.GroupBy)
	assert.Equal(t, 24*time.Hour, s.Monitoring.PageDuration)
	assert.Equal(t, 5*time.Minute, s.Cache.EventTTL)
	assert.Equal(t, 500*time.Millisecond, s.Database.SlowQueryThreshold)
	assert.Equal(t, "info", s.Logging.DefaultLevel)
	require.NotNil(t, s.Logging.Console)
	assert.True(t, s.Logging.Console.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
  mysql:
    host: db.internal
    username: visits
visits:
  eventmaxtime: 15m
  groupby: station
  timezone: Pacific/Auckland
`)

	s, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseMySQL, s.Database.Type)
	assert.Equal(t, "db.internal", s.Database.MySQL.Host)
	assert.Equal(t, "3306", s.Database.MySQL.Port, "unset keys keep defaults")
	assert.Equal(t, 15*time.Minute, s.Visits.EventMaxTime)
	assert.Equal(t, "station", s.Visits.GroupBy)

	loc, err := s.Visits.Location()
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", loc.String())
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("VISITS_VISITS_MAXBATCH", "50")
	t.Setenv("VISITS_DATABASE_SQLITE_PATH", "/tmp/other.db")

	s, err := Load(NewViper(), writeConfig(t, "debug: true\n"))
	require.NoError(t, err)

	assert.True(t, s.Debug)
	assert.Equal(t, 50, s.Visits.MaxBatch)
	assert.Equal(t, "/tmp/other.db", s.Database.SQLite.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadInvalidSettings(t *testing.T) {
	path := writeConfig(t, `
database:
  type: postgres
visits:
  maxbatch: 0
  groupby: site
`)

	_, err := Load(NewViper(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2, "database and visits problems are collected together")
	assert.Contains(t, err.Error(), "postgres")
	assert.Contains(t, err.Error(), "maxbatch must be positive")
	assert.Contains(t, err.Error(), "groupby")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func() *Settings {
		return &Settings{
			Database: DatabaseSettings{Type: DatabaseSQLite, SQLite: SQLiteSettings{Path: "x.db"}},
			Visits: VisitsSettings{
				EventMaxTime:  10 * time.Minute,
				MaxRecordings: 2000,
				MaxBatch:      500,
				GroupBy:       "device",
			},
			Monitoring: MonitoringSettings{PageDuration: 24 * time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"mysql missing fields", func(s *Settings) { s.Database.Type = DatabaseMySQL }, "host, port, username, database"},
		{"postgres missing fields", func(s *Settings) { s.Database.Type = DatabasePostgres }, "host, username, database"},
		{"unknown database", func(s *Settings) { s.Database.Type = "oracle" }, "database.type"},
		{"batch above ceiling", func(s *Settings) { s.Visits.MaxBatch = 3000 }, "maxbatch must not exceed maxrecordings"},
		{"zero window", func(s *Settings) { s.Visits.EventMaxTime = 0 }, "eventmaxtime must be positive"},
		{"bad timezone", func(s *Settings) { s.Visits.Timezone = "Mars/Olympus" }, "unknown timezone"},
		{"short page", func(s *Settings) { s.Monitoring.PageDuration = time.Second }, "pageduration"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "telemetry.dsn"},
		{"metrics without listen", func(s *Settings) { s.Metrics.Enabled = true }, "metrics.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAMLMasksSecrets(t *testing.T) {
	t.Parallel()

	s := &Settings{
		Database: DatabaseSettings{
			Type:     DatabaseMySQL,
			MySQL:    MySQLSettings{Host: "db", Password: "hunter2"},
			Postgres: PostgresSettings{Password: "swordfish"},
		},
		Telemetry: TelemetrySettings{Enabled: true, DSN: "https://key@sentry.example/1"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, s))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "swordfish")
	assert.NotContains(t, out, "sentry.example")
	assert.Contains(t, out, "host: db")
	assert.Equal(t, "hunter2", s.Database.MySQL.Password, "input is not modified")
}

// Not parallel: exports variables into the process environment.
func TestLoadEnvFile(t *testing.T) {
	const key = "VISITS_VISITS_GROUPBY"
	require.Empty(t, os.Getenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "visits.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=station\n"), 0o600))
	require.NoError(t, LoadEnvFile(path))

	s, err := Load(NewViper(), writeConfig(t, "database:\n  type: sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, "station", s.Visits.GroupBy)
}

func TestLoadEnvFileMissing(t *testing.T) {
	t.Parallel()

	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
