package config

import "time"

// RemoteConfig holds WooCommerce/WordPress client configuration
type RemoteConfig struct {
	Timeout   time.Duration `yaml:"timeout" default:"120s"`
	UserAgent string        `yaml:"user_agent" default:"site-sync/1.0"`
}

// DefaultRemoteConfig returns the default remote client configuration
func DefaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		Timeout:   120 * time.Second,
		UserAgent: "site-sync/1.0",
	}
}
