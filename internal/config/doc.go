// Package config loads and validates the daemon configuration from
// environment variables and an optional config file. Environment
// variables use the SONIX_ prefix and take precedence over file values.
package config
