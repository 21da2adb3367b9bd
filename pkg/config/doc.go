// Package config handles loading the email-sender configuration from a YAML
// file, applying environment overrides and defaults, and validating it.
package config
