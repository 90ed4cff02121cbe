// Package server holds the HTTP server configuration.
//
// The Config struct defines the HTTP port, the API key and which tables the
// HTTP surface exposes. It is embedded by core/config and read by the start
// command and the tables feature.
package server
