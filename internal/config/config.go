// Package config provides configuration for the histedit CLI.
package config

import (
	"os"
	"strconv"
)

// Config holds CLI configuration. Flags override these values.
type Config struct {
	// DataDir is the directory holding the session database.
	DataDir string
	// PolicyPath points to a YAML deletion policy, empty for none.
	PolicyPath string
	// Debug enables debug logging.
	Debug bool
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		DataDir:    getEnv("HISTEDIT_DATA", ".histedit"),
		PolicyPath: getEnv("HISTEDIT_POLICY", ""),
		Debug:      getEnvBool("HISTEDIT_DEBUG", false),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
