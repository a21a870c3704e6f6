// Package config loads bridge configuration from BRIDGE_* environment
// variables, optionally overlaid by a YAML file named in BRIDGE_CONFIG_FILE.
//
// The Hub shared secret is deliberately absent from Config: pkg/hubsso
// re-reads it per request so that secrets injected after process start
// (container secret mounts, sed-style startup substitution) take effect
// without a restart. Config only names where the secret lives.
package config
