// Package config loads application configuration from a YAML file with
// environment variable overrides under the SALES_ prefix. Environment
// values take precedence over the file, which takes precedence over
// the built-in defaults.
package config
