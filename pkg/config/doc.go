// Package config loads TaskHub configuration.
//
// Configuration comes from three layers, later layers winning: built-in
// defaults, an optional YAML file named by TASKHUB_CONFIG_FILE, and
// TASKHUB_* environment variables. LoadConfig validates the merged result
// before returning it.
package config
