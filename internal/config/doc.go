// Package config loads the dashboard configuration from TOML or YAML.
//
// Environment variables in the file are expanded before decoding, missing
// values are filled by SetDefaults, and Validate reports the first problem
// wrapped around one of the package's sentinel errors.
package config
