package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/visits.log")
	v.SetDefault("logging.fileoutput.level", "info")
	v.SetDefault("logging.fileoutput.maxsize", 100)
	v.SetDefault("logging.fileoutput.maxbackups", 5)
	v.SetDefault("logging.fileoutput.maxage", 30)
	v.SetDefault("logging.fileoutput.compress", true)

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.sqlite.path", "visits.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "visits")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", "5432")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "visits")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.slowquerythreshold", 500*time.Millisecond)

	v.SetDefault("visits.eventmaxtime", 10*time.Minute)
	v.SetDefault("visits.audiobaitinterval", 10*time.Minute)
	v.SetDefault("visits.maxrecordings", 2000)
	v.SetDefault("visits.maxbatch", 500)
	v.SetDefault("visits.groupby", "device")
	v.SetDefault("visits.timezone", "UTC")

	v.SetDefault("monitoring.pageduration", 24*time.Hour)

	v.SetDefault("cache.eventttl", 5*time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "localhost:9090")
}
