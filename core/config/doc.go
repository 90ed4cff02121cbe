// Package config provides configuration management for the data service.
//
// Viper merges, from lowest to highest precedence, the `default` struct tags,
// an optional config.yaml, an optional .env file (loaded with godotenv) and
// the environment. Nested keys map to environment variables by replacing
// dots with underscores, so database.driver becomes DATABASE_DRIVER.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, exposed tables)
//   - Database: MySQL or SQLite connection details
//   - Adapter: read caps, client-side offsets, schema cache TTL
//   - Storage: S3/MinIO credentials and the snapshot bucket
//   - Log: Logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
