package server

import "strings"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Tables is a comma separated allowlist of tables exposed over HTTP.
	// Empty exposes every table.
	Tables string `mapstructure:"tables" default:""`
	// ReadOnly rejects every write endpoint.
	ReadOnly bool `mapstructure:"read_only" default:"false"`
}

// AllowedTables returns the parsed table allowlist.
func (c Config) AllowedTables() []string {
	var out []string
	for _, name := range strings.Split(c.Tables, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// IsTableAllowed checks if a table may be served.
func (c Config) IsTableAllowed(name string) bool {
	allowed := c.AllowedTables()
	if len(allowed) == 0 {
		return name != ""
	}
	for _, a := range allowed {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}
