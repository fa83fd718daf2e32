// Package config loads, normalizes, and validates alttag configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ALTTAG_AUTH_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: provider endpoint and credentials, batch and approval policy,
// scheduling, and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
