package database

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds configuration for the database connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name. For sqlite it is the file path or DSN.
	Name string `mapstructure:"name" default:"data"`
	// Driver is the database driver (mysql, sqlite).
	Driver string `mapstructure:"driver" default:"mysql"`
	// TimeoutSeconds bounds connection setup and every read and write.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// AdapterConfig tunes how the Adapter reads and caches.
type AdapterConfig struct {
	// ApplySkip moves query offsets out of the command: the command fetches
	// skip+take rows and the materializer drops the leading ones.
	ApplySkip bool `mapstructure:"apply_skip" default:"false"`
	// MaxRecords caps the rows any single read materializes. Zero means no cap.
	MaxRecords int `mapstructure:"max_records" default:"0"`
	// SchemaCacheTTLSeconds is how long table schemas are reused. Zero disables caching.
	SchemaCacheTTLSeconds int `mapstructure:"schema_cache_ttl_seconds" default:"300"`
}

// IsValidDriver reports whether driver names a supported backend.
func IsValidDriver(driver string) bool {
	return driver == DriverMySQL || driver == DriverSQLite
}
