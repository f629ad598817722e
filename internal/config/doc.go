// Package config provides the runtime configuration for lure: listener
// ports, storage location, session limits, classification tuning and the
// optional GeoIP, Kafka and metrics integrations.
//
// Configuration comes from three layers applied in order: defaults from
// NewConfig, an optional YAML file (.lure), and command-line flags.
package config
