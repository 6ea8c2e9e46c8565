// Package config handles loading and parsing of configuration from YAML files,
// a .env file and environment variables. It defines the application
// configuration structure: server settings, proxy timeout and fallback mounts,
// the route store backend, the request log size and metrics exposure.
package config
