// Package conf loads visits-go settings from config.yaml, VISITS_ environment
// variables and command line flags.
package conf

import (
	"bytes"
	"embed"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Database types.
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// EnvPrefix prefixes every environment override, e.g. VISITS_DATABASE_TYPE.
const EnvPrefix = "VISITS"

// Settings is the full application configuration.
type Settings struct {
	Debug      bool                 `yaml:"debug"`
	Logging    logger.LoggingConfig `yaml:"logging"`
	Database   DatabaseSettings     `yaml:"database"`
	Visits     VisitsSettings       `yaml:"visits"`
	Monitoring MonitoringSettings   `yaml:"monitoring"`
	Cache      CacheSettings        `yaml:"cache"`
	Telemetry  TelemetrySettings    `yaml:"telemetry"`
	Metrics    MetricsSettings      `yaml:"metrics"`
}

// DatabaseSettings selects and configures the recordings database.
type DatabaseSettings struct {
	Type               string           `yaml:"type"` // sqlite, mysql or postgres
	SQLite             SQLiteSettings   `yaml:"sqlite"`
	MySQL              MySQLSettings    `yaml:"mysql"`
	Postgres           PostgresSettings `yaml:"postgres"`
	SlowQueryThreshold time.Duration    `yaml:"slowquerythreshold"`
}

// SQLiteSettings configures the sqlite database.
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the mysql connection.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresSettings configures the postgres connection.
type PostgresSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// VisitsSettings tunes visit aggregation.
type VisitsSettings struct {
	EventMaxTime      time.Duration `yaml:"eventmaxtime"`      // max gap between events of one visit
	AudioBaitInterval time.Duration `yaml:"audiobaitinterval"` // bait events this close to a visit start count
	MaxRecordings     int           `yaml:"maxrecordings"`     // hard ceiling per query run
	MaxBatch          int           `yaml:"maxbatch"`
	GroupBy           string        `yaml:"groupby"`  // device or station
	Timezone          string        `yaml:"timezone"` // IANA name, "Local" or "UTC"
}

// Location resolves Timezone, defaulting to UTC.
func (v *VisitsSettings) Location() (*time.Location, error) {
	switch v.Timezone {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	return time.LoadLocation(v.Timezone)
}

// MonitoringSettings configures monitoring pages.
type MonitoringSettings struct {
	PageDuration time.Duration `yaml:"pageduration"`
}

// CacheSettings configures in-process caches.
type CacheSettings struct {
	EventTTL time.Duration `yaml:"eventttl"`
}

// TelemetrySettings configures Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// NewViper returns a viper instance with defaults and environment overrides
// applied. Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaultConfig(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings. An explicit configFile must exist; otherwise the
// default search paths are tried and the embedded defaults are used when no
// file is found.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if v == nil {
		v = NewViper()
	}

	if err := readConfig(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	// No file anywhere: fall back to the embedded defaults.
	if err := v.ReadConfig(bytes.NewReader(DefaultConfig())); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_embedded_config").
			Build()
	}
	return nil
}

// DefaultEnvFile is read by LoadEnvFile when no path is given.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables in a dotenv file so VISITS_ overrides
// can live next to the binary. Variables already set in the environment
// win. A missing default file is not an error; a missing explicit one is.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("env_file", path).
			Build()
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("env_file", path).
			Build()
	}
	return nil
}

// DefaultConfigPaths lists the directories searched for config.yaml.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "visits-go"))
	}
	return append(paths, "/etc/visits-go")
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	data, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		// The file is embedded at build time.
		panic(err)
	}
	return data
}

// WriteYAML writes settings as YAML with secrets masked.
func WriteYAML(w io.Writer, s *Settings) error {
	masked := *s
	if masked.Database.MySQL.Password != "" {
		masked.Database.MySQL.Password = "********"
	}
	if masked.Database.Postgres.Password != "" {
		masked.Database.Postgres.Password = "********"
	}
	if masked.Telemetry.DSN != "" {
		masked.Telemetry.DSN = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "encode_yaml").
			Build()
	}
	return enc.Close()
}
