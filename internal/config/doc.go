// Package config provides configuration management for hashharvest.
//
// Configuration comes from two places: CLI flags (which populate the flat
// Config struct) and an optional YAML configuration file (.hashharvest) that
// holds named server profiles with credentials and per-server overrides.
// The tool never hardcodes credentials; they come from flags, the config
// file, or environment variables.
//
// The package also exposes the XDG base directories used for the run
// history database and default output location.
package config
