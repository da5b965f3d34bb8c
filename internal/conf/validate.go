package conf

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError collects every problem found in a settings struct.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateVisitsSettings(&settings.Visits); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Monitoring.PageDuration < time.Minute {
		ve.Errors = append(ve.Errors, fmt.Sprintf("monitoring.pageduration must be at least 1m, got %s", settings.Monitoring.PageDuration))
	}

	if settings.Cache.EventTTL < 0 {
		ve.Errors = append(ve.Errors, "cache.eventttl must not be negative")
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry.dsn is required when telemetry is enabled")
	}

	if settings.Metrics.Enabled && settings.Metrics.Listen == "" {
		ve.Errors = append(ve.Errors, "metrics.listen is required when metrics are enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(db *DatabaseSettings) error {
	switch db.Type {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DatabaseMySQL:
		var missing []string
		if db.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if db.MySQL.Port == "" {
			missing = append(missing, "port")
		}
		if db.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if db.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing %s", strings.Join(missing, ", "))
		}
	case DatabasePostgres:
		var missing []string
		if db.Postgres.Host == "" {
			missing = append(missing, "host")
		}
		if db.Postgres.Username == "" {
			missing = append(missing, "username")
		}
		if db.Postgres.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.postgres is missing %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("database.type must be %q, %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, DatabasePostgres, db.Type)
	}
	return nil
}

func validateVisitsSettings(v *VisitsSettings) error {
	var problems []string
	if v.EventMaxTime <= 0 {
		problems = append(problems, "eventmaxtime must be positive")
	}
	if v.AudioBaitInterval < 0 {
		problems = append(problems, "audiobaitinterval must not be negative")
	}
	if v.MaxRecordings <= 0 {
		problems = append(problems, "maxrecordings must be positive")
	}
	if v.MaxBatch <= 0 {
		problems = append(problems, "maxbatch must be positive")
	} else if v.MaxRecordings > 0 && v.MaxBatch > v.MaxRecordings {
		problems = append(problems, "maxbatch must not exceed maxrecordings")
	}
	if v.GroupBy != "device" && v.GroupBy != "station" {
		problems = append(problems, fmt.Sprintf("groupby must be device or station, got %q", v.GroupBy))
	}
	if _, err := v.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("unknown timezone %q", v.Timezone))
	}
	if len(problems) > 0 {
		return fmt.Errorf("visits: %s", strings.Join(problems, ", "))
	}
	return nil
}
