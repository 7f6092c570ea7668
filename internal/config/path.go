package config

import "os"

// ConfigPath is the default config file location, overridable with
// HELIX_CONFIG.
var ConfigPath = defaultConfigPath()

func defaultConfigPath() string {
	if v := os.Getenv("HELIX_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
